// Package capture renders the /calendar page in headless Chromium and
// stores it as a PNG preview.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"calview/internal/convert"
	appLog "calview/internal/log"
)

// Defaults match a portrait 7.5" panel.
const (
	DefaultWidth         = 984
	DefaultHeight        = 1304
	DefaultTimeout       = 30 * time.Second
	DefaultReadySelector = `[data-ready="true"]`
)

var (
	ErrMissingURL    = errors.New("capture: URL is required")
	ErrMissingOutput = errors.New("capture: OutputPath is required")
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?view=week".
	URL string

	// OutputPath is where the PNG is written. The file is replaced
	// atomically.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels.
	Width  int
	Height int

	// Timeout bounds the entire capture.
	Timeout time.Duration

	// ReadySelector is waited on before taking the screenshot.
	ReadySelector string

	// ExecPath overrides the Chromium binary. Empty means autodetect.
	ExecPath string

	// Headers are sent with every request, e.g. Authorization.
	Headers map[string]string

	// Mode reduces the screenshot to an e-paper palette before writing.
	Mode convert.Mode
}

// withDefaults fills zero fields and validates the rest.
func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, ErrMissingURL
	}
	if o.OutputPath == "" {
		return o, ErrMissingOutput
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ReadySelector == "" {
		o.ReadySelector = DefaultReadySelector
	}
	if o.Mode == "" {
		o.Mode = convert.ModeColor
	}
	return o, nil
}

// CapturePNG launches a headless Chromium via chromedp, navigates to
// opts.URL, waits for opts.ReadySelector to become visible and writes a
// full-page PNG screenshot to opts.OutputPath.
func CapturePNG(parentCtx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	started := time.Now()
	var png []byte
	tasks := chromedp.Tasks{chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height))}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(opts.ReadySelector, chromedp.ByQuery),
		// Let the last layout pass paint.
		chromedp.Sleep(500*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	png, err = convert.ReducePNG(png, opts.Mode)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("preview captured",
		"url", opts.URL,
		"path", opts.OutputPath,
		"mode", opts.Mode,
		"bytes", len(png),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// Hook returns a refresh hook that captures opts after every refresh.
func Hook(opts Options) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return CapturePNG(ctx, opts)
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".calview-preview-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
