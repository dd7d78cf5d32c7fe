package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"calview/internal/capture"
	"calview/internal/convert"
)

func (c *CLI) captureCommand() *cobra.Command {
	var (
		url     string
		out     string
		width   int
		height  int
		timeout time.Duration
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the served /calendar page to PNG",
		Long: `Open /calendar of a running calview server in headless Chromium and save a PNG.

The page is captured once it reports data-ready="true".`,
		Example: `  calview capture --out preview.png
  calview capture --url "http://127.0.0.1:8080/calendar?view=day&date=2025-03-10"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = localURL(cfg.Listen) + "/calendar?view=week"
			}
			if out == "" {
				out = cfg.PreviewPath
			}
			if out == "" {
				out = "preview.png"
			}
			if mode == "" {
				mode = cfg.PreviewMode
			}
			m, err := convert.ParseMode(mode)
			if err != nil {
				return err
			}

			if err := capture.CapturePNG(cmd.Context(), capture.Options{
				URL:        url,
				OutputPath: out,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
				Headers:    authHeaders(cfg),
				Mode:       m,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "page to capture (default the configured server's week view)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default preview_path or preview.png)")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", capture.DefaultHeight, "viewport height in pixels")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "capture timeout")
	cmd.Flags().StringVar(&mode, "mode", "", "palette: color, mono or tricolor (default preview_mode)")
	return cmd
}
