package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"calview/internal/capture"
	"calview/internal/convert"
	appLog "calview/internal/log"
	"calview/internal/refresh"
	"calview/internal/store"
	"calview/internal/web"
)

func (c *CLI) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar API and pages, refreshing on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", loc.String(),
				"refresh", cfg.RefreshCron,
				"horizon_days", cfg.HorizonDays,
				"backfill_days", cfg.BackfillDays,
				"show_all_day", cfg.ShowAllDay,
				"ics_count", len(cfg.ICS),
				"preview_path", cfg.PreviewPath,
			)

			st := store.New()
			refresher := refresh.New(cfg, loc, nil, st)
			if cfg.PreviewPath != "" {
				mode, err := convert.ParseMode(cfg.PreviewMode)
				if err != nil {
					return err
				}
				refresher.AddHook(capture.Hook(capture.Options{
					URL:        localURL(cfg.Listen) + "/calendar?view=week",
					OutputPath: cfg.PreviewPath,
					Headers:    authHeaders(cfg),
					Mode:       mode,
				}))
			}

			scheduler, err := refresh.NewScheduler(refresher, cfg.RefreshCron, loc)
			if err != nil {
				return err
			}

			// Listen before the first refresh so the capture hook can reach
			// /calendar.
			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return fmt.Errorf("serve: listen %s: %w", cfg.Listen, err)
			}

			ctx := cmd.Context()
			srv := web.NewServer(cfg, loc, st, refresher)
			srv.AccessLog = appLog.Logger().StandardLog().Writer()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ctx, ln) }()

			scheduler.Start(ctx)
			appLog.Info("refresh scheduled", "next", scheduler.Next())

			return <-errCh
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the configured listen address")
	return cmd
}
