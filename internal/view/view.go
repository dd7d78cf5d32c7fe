// Package view turns expanded occurrences into day, week and month view
// models. Timed events of each day go through the layout engine and the
// timeline mapper; all-day and multi-day events go to the all-day strip.
package view

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"calview/internal/config"
	"calview/internal/layout"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/timeline"
)

var ErrInvalidDate = errors.New("view: invalid date, want YYYY-MM-DD")

const dateLayout = "2006-01-02"

// Options carries the geometry used to position blocks.
type Options struct {
	Scale        timeline.Scale
	ColumnGapPct float64
	StartHour    int
	EndHour      int
	ShowAllDay   bool
}

// OptionsFromConfig maps the timeline section of the config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	t := cfg.Timeline
	return Options{
		Scale: timeline.Scale{
			HourHeightPx:  t.HourHeightPx,
			MinHeightPx:   t.MinEventHeightPx,
			VerticalGapPx: t.VerticalGapPx,
		},
		ColumnGapPct: t.ColumnGapPct,
		StartHour:    t.DayStartHour,
		EndHour:      t.DayEndHour,
		ShowAllDay:   cfg.ShowAllDay,
	}
}

// Block is a positioned timed event.
type Block struct {
	ID       string    `json:"id"`
	SourceID string    `json:"source_id"`
	UID      string    `json:"uid"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`

	StartMinutes int `json:"start_minutes"`
	EndMinutes   int `json:"end_minutes"`
	ColumnIndex  int `json:"column_index"`
	ColumnCount  int `json:"column_count"`

	TopPx    float64 `json:"top_px"`
	HeightPx float64 `json:"height_px"`
	LeftPct  float64 `json:"left_pct"`
	WidthPct float64 `json:"width_pct"`
}

// AllDayItem is an entry of the all-day strip.
type AllDayItem struct {
	ID       string    `json:"id"`
	SourceID string    `json:"source_id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// HourLine is a labelled gridline of the day column.
type HourLine struct {
	Hour  int     `json:"hour"`
	Label string  `json:"label"`
	TopPx float64 `json:"top_px"`
}

// Day is the view model of one calendar day.
type Day struct {
	Date     string       `json:"date"`
	Weekday  string       `json:"weekday"`
	IsToday  bool         `json:"is_today"`
	HeightPx float64      `json:"height_px"`
	Hours    []HourLine   `json:"hours"`
	AllDay   []AllDayItem `json:"all_day"`
	Blocks   []Block      `json:"blocks"`
	// MaxColumns is the widest column count of any block that day.
	MaxColumns int `json:"max_columns"`
	// Concurrency is the most timed events running at any one instant.
	Concurrency int `json:"concurrency"`
}

// ParseDate parses YYYY-MM-DD in loc. An empty string means today.
func ParseDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return timeline.StartOfDay(now, loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// BuildDay lays out the occurrences that fall on day.
func BuildDay(occurrences []model.Occurrence, day time.Time, loc *time.Location, now time.Time, opts Options) Day {
	if loc == nil {
		loc = time.Local
	}
	dayStart := timeline.StartOfDay(day, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	windowTop := timeline.MinutesToPixels(opts.StartHour*timeline.MinutesPerHour, opts.Scale.PxPerMinute())

	out := Day{
		Date:     dayStart.Format(dateLayout),
		Weekday:  dayStart.Weekday().String(),
		IsToday:  timeline.StartOfDay(now, loc).Equal(dayStart),
		HeightPx: float64(opts.EndHour-opts.StartHour) * opts.Scale.HourHeightPx,
		AllDay:   []AllDayItem{},
		Blocks:   []Block{},
	}
	for _, h := range timeline.Hours(opts.StartHour, opts.EndHour) {
		out.Hours = append(out.Hours, HourLine{
			Hour:  h,
			Label: fmt.Sprintf("%02d:00", h),
			TopPx: timeline.MinutesToPixels(h*timeline.MinutesPerHour, opts.Scale.PxPerMinute()) - windowTop,
		})
	}

	seen := make(map[string]bool)
	var timed []layout.TimedEvent

	for _, o := range occurrences {
		if !o.Touches(dayStart, dayEnd) {
			continue
		}
		id := o.ID()
		if seen[id] {
			appLog.Debug("view: duplicate occurrence skipped", "id", id, "uid", o.UID)
			continue
		}
		seen[id] = true

		startMin, endMin, single := timeline.DaySpan(o.Start, o.End, dayStart, loc)
		if o.AllDay || !single {
			if opts.ShowAllDay {
				out.AllDay = append(out.AllDay, AllDayItem{ID: id, SourceID: o.SourceID, Title: o.Summary, Start: o.Start, End: o.End})
			}
			continue
		}
		timed = append(timed, layout.TimedEvent{ID: id, StartMinutes: startMin, EndMinutes: endMin, Payload: o})
	}

	out.Concurrency = layout.MaxConcurrency(timed)
	assigned := layout.Index(layout.Compute(timed))
	for _, ev := range timed {
		a := assigned[ev.ID]
		o := ev.Payload.(model.Occurrence)
		top, height := opts.Scale.Geometry(a.StartMinutes, a.EndMinutes)
		left, width := layout.Box(a, opts.ColumnGapPct)
		out.Blocks = append(out.Blocks, Block{
			ID:           a.EventID,
			SourceID:     o.SourceID,
			UID:          o.UID,
			Title:        o.Summary,
			Location:     o.Location,
			Start:        o.Start,
			End:          o.End,
			StartMinutes: a.StartMinutes,
			EndMinutes:   a.EndMinutes,
			ColumnIndex:  a.ColumnIndex,
			ColumnCount:  a.ColumnCount,
			TopPx:        top - windowTop,
			HeightPx:     height,
			LeftPct:      left,
			WidthPct:     width,
		})
		if a.ColumnCount > out.MaxColumns {
			out.MaxColumns = a.ColumnCount
		}
	}

	sort.SliceStable(out.Blocks, func(i, j int) bool {
		a, b := out.Blocks[i], out.Blocks[j]
		if a.StartMinutes != b.StartMinutes {
			return a.StartMinutes < b.StartMinutes
		}
		return a.ColumnIndex < b.ColumnIndex
	})
	sort.SliceStable(out.AllDay, func(i, j int) bool {
		return out.AllDay[i].Start.Before(out.AllDay[j].Start)
	})

	return out
}

// Week is seven consecutive days starting on the configured week start.
type Week struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  []Day  `json:"days"`
	// Busiest is the highest Concurrency of any day in the week.
	Busiest int `json:"busiest"`
}

// WeekStartOf returns midnight of the first day of the week containing t.
// weekStart is "monday" or "sunday"; anything else means monday.
func WeekStartOf(t time.Time, loc *time.Location, weekStart string) time.Time {
	d := timeline.StartOfDay(t, loc)
	first := time.Monday
	if weekStart == "sunday" {
		first = time.Sunday
	}
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// BuildWeek builds the week containing anchor.
func BuildWeek(occurrences []model.Occurrence, anchor time.Time, loc *time.Location, weekStart string, now time.Time, opts Options) Week {
	start := WeekStartOf(anchor, loc, weekStart)
	w := Week{
		Start: start.Format(dateLayout),
		End:   start.AddDate(0, 0, 6).Format(dateLayout),
		Days:  make([]Day, 0, 7),
	}
	for i := 0; i < 7; i++ {
		d := BuildDay(occurrences, start.AddDate(0, 0, i), loc, now, opts)
		if d.Concurrency > w.Busiest {
			w.Busiest = d.Concurrency
		}
		w.Days = append(w.Days, d)
	}
	return w
}

// maxCellTitles bounds the titles listed in a month cell.
const maxCellTitles = 3

// MonthCell is one day of the month grid.
type MonthCell struct {
	Date      string   `json:"date"`
	Day       int      `json:"day"`
	InMonth   bool     `json:"in_month"`
	IsToday   bool     `json:"is_today"`
	Count     int      `json:"count"`
	Titles    []string `json:"titles"`
	MoreCount int      `json:"more_count"`
}

// Month is a 6x7 grid covering the month of the anchor date.
type Month struct {
	Year  int           `json:"year"`
	Month string        `json:"month"`
	Weeks [][]MonthCell `json:"weeks"`
}

// BuildMonth builds the month grid. Cells list titles in input order and
// count every occurrence touching the day.
func BuildMonth(occurrences []model.Occurrence, anchor time.Time, loc *time.Location, weekStart string, now time.Time) Month {
	if loc == nil {
		loc = time.Local
	}
	a := anchor.In(loc)
	first := time.Date(a.Year(), a.Month(), 1, 0, 0, 0, 0, loc)
	gridStart := WeekStartOf(first, loc, weekStart)
	today := timeline.StartOfDay(now, loc)

	m := Month{Year: first.Year(), Month: first.Month().String()}
	for w := 0; w < 6; w++ {
		row := make([]MonthCell, 7)
		for d := 0; d < 7; d++ {
			day := gridStart.AddDate(0, 0, w*7+d)
			next := day.AddDate(0, 0, 1)
			cell := MonthCell{
				Date:    day.Format(dateLayout),
				Day:     day.Day(),
				InMonth: day.Month() == first.Month(),
				IsToday: day.Equal(today),
				Titles:  []string{},
			}
			for _, o := range occurrences {
				if !o.Touches(day, next) {
					continue
				}
				cell.Count++
				if len(cell.Titles) < maxCellTitles {
					cell.Titles = append(cell.Titles, o.Summary)
				}
			}
			cell.MoreCount = cell.Count - len(cell.Titles)
			row[d] = cell
		}
		m.Weeks = append(m.Weeks, row)
	}
	return m
}
