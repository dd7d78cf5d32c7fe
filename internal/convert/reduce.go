// Package convert reduces captured previews to the few inks an e-paper
// panel can show.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
)

// Mode selects the output palette of a preview.
type Mode string

const (
	ModeColor    Mode = "color"
	ModeMono     Mode = "mono"
	ModeTriColor Mode = "tricolor"
)

var (
	inkRGBA = [...]color.Color{
		inkWhite: color.White,
		inkBlack: color.Black,
		inkRed:   color.RGBA{R: 0xFF, A: 0xFF},
	}

	paletteMono     = color.Palette{inkRGBA[inkWhite], inkRGBA[inkBlack]}
	paletteTriColor = color.Palette{inkRGBA[inkWhite], inkRGBA[inkBlack], inkRGBA[inkRed]}
)

// ParseMode accepts color, mono and tricolor. Empty means color.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeColor:
		return ModeColor, nil
	case ModeMono, ModeTriColor:
		return m, nil
	default:
		return "", fmt.Errorf("convert: unknown mode %q", s)
	}
}

// Reduce maps every pixel of img onto the palette of mode. ModeColor
// returns img unchanged.
//
// Pixels are classified as follows:
//   - alpha < 128 is white
//   - luma below 64 is black ink
//   - clearly red pixels are red ink (tricolor) or black ink (mono)
//   - everything else is white
func Reduce(img image.Image, mode Mode) image.Image {
	if mode == ModeColor || mode == "" {
		return img
	}
	pal := paletteTriColor
	if mode == ModeMono {
		pal = paletteMono
	}

	b := img.Bounds()
	out := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A < 128 {
				continue // index 0 is white
			}
			ink := classifyPixel(c)
			if ink == inkRed && mode == ModeMono {
				ink = inkBlack
			}
			out.SetColorIndex(x, y, uint8(ink))
		}
	}
	return out
}

// ReducePNG decodes a PNG, reduces it and encodes it again.
func ReducePNG(data []byte, mode Mode) ([]byte, error) {
	if mode == ModeColor || mode == "" {
		return data, nil
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("convert: decode PNG: %w", err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, Reduce(img, mode)); err != nil {
		return nil, fmt.Errorf("convert: encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// inkColor is also the palette index of the ink.
type inkColor int

const (
	inkWhite inkColor = iota
	inkBlack
	inkRed
)

// classifyPixel picks the ink for an opaque pixel.
//
//   - luma Y = 0.299R + 0.587G + 0.114B
//   - redness = R - max(G, B)
func classifyPixel(c color.NRGBA) inkColor {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	y := 0.299*r + 0.587*g + 0.114*b

	maxGB := g
	if b > maxGB {
		maxGB = b
	}
	redness := r - maxGB

	if y < 64 {
		return inkBlack
	}
	if r > 128 && redness > 32 {
		return inkRed
	}
	return inkWhite
}
