package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/refresh"
	"calview/internal/view"
)

func (c *CLI) layoutCommand() *cobra.Command {
	var (
		icsPath string
		date    string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the column layout of one day",
		Long: `Compute the side-by-side layout of one day's timed events and print it.

Events come from --ics when given, otherwise from the configured sources.`,
		Example: `  calview layout --ics work.ics --date 2025-03-10
  calview layout --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := c.loadConfig()
			if err != nil {
				return err
			}
			now := time.Now()
			day, err := view.ParseDate(date, loc, now)
			if err != nil {
				return err
			}

			events, err := loadEvents(cmd.Context(), cfg, icsPath)
			if err != nil {
				return err
			}
			expanded, err := ics.ExpandOccurrences(events, ics.ExpandConfig{
				DisplayLocation: loc,
				RangeStart:      day,
				RangeEnd:        day.AddDate(0, 0, 1),
			})
			if err != nil {
				return err
			}

			d := view.BuildDay(expanded.Occurrences, day, loc, now, view.OptionsFromConfig(cfg))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			renderDay(cmd.OutOrStdout(), d, loc)
			return nil
		},
	}

	cmd.Flags().StringVar(&icsPath, "ics", "", "read events from a local .ics file")
	cmd.Flags().StringVar(&date, "date", "", "day to lay out as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the day view as JSON")
	return cmd
}

// loadEvents parses icsPath, or fetches every configured source when it
// is empty. Failing sources are logged and skipped.
func loadEvents(ctx context.Context, cfg *config.Config, icsPath string) ([]ics.ParsedEvent, error) {
	if icsPath != "" {
		return ics.LoadFile(icsPath, "file")
	}

	sources := refresh.Sources(cfg)
	if len(sources) == 0 {
		return nil, fmt.Errorf("layout: no ICS sources configured and no --ics given")
	}
	results, errs := ics.NewFetcher(cfg.CacheDir, nil).FetchAll(ctx, sources)
	for _, err := range errs {
		appLog.Warn("layout: source skipped", "err", err)
	}

	var events []ics.ParsedEvent
	for _, res := range results {
		parsed, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Warn("layout: parse failed", "id", res.Source.ID, "err", err)
			continue
		}
		events = append(events, parsed...)
	}
	return events, nil
}

var (
	styleHeader = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderDay prints the all-day strip and a table of positioned blocks.
func renderDay(w io.Writer, d view.Day, loc *time.Location) {
	fmt.Fprintln(w, styleTitle.Render(d.Weekday+" "+d.Date))
	for _, a := range d.AllDay {
		fmt.Fprintln(w, styleDim.Render("  all day  ")+a.Title)
	}
	if len(d.Blocks) == 0 {
		fmt.Fprintln(w, styleDim.Render("  no timed events"))
		return
	}

	rows := make([][]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		rows = append(rows, []string{
			b.Start.In(loc).Format("15:04") + "-" + b.End.In(loc).Format("15:04"),
			b.Title,
			strconv.Itoa(b.ColumnIndex+1) + "/" + strconv.Itoa(b.ColumnCount),
			strconv.FormatFloat(b.TopPx, 'f', 1, 64),
			strconv.FormatFloat(b.HeightPx, 'f', 1, 64),
			strconv.FormatFloat(b.LeftPct, 'f', 1, 64) + "%",
			strconv.FormatFloat(b.WidthPct, 'f', 1, 64) + "%",
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleDim).
		Headers("Time", "Title", "Column", "Top", "Height", "Left", "Width").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}
