package view

import (
	"errors"
	"testing"
	"time"

	"calview/internal/model"
	"calview/internal/timeline"
)

var testOpts = Options{
	Scale:        timeline.Scale{HourHeightPx: 60, MinHeightPx: 10, VerticalGapPx: 0},
	ColumnGapPct: 0,
	StartHour:    0,
	EndHour:      24,
	ShowAllDay:   true,
}

func occ(uid string, start, end time.Time) model.Occurrence {
	return model.Occurrence{
		SourceID:    "test",
		UID:         uid,
		InstanceKey: start.UTC().Format(time.RFC3339),
		Summary:     uid,
		Start:       start,
		End:         end,
	}
}

func at(day, hour, min int) time.Time {
	return time.Date(2025, 3, day, hour, min, 0, 0, time.UTC)
}

func blockByTitle(t *testing.T, d Day, title string) Block {
	t.Helper()
	for _, b := range d.Blocks {
		if b.Title == title {
			return b
		}
	}
	t.Fatalf("no block %q in %+v", title, d.Blocks)
	return Block{}
}

func TestBuildDay(t *testing.T) {
	occurrences := []model.Occurrence{
		occ("A", at(10, 9, 0), at(10, 10, 0)),
		occ("B", at(10, 9, 30), at(10, 10, 30)),
		occ("C", at(10, 10, 0), at(10, 11, 0)),
		occ("other-day", at(11, 9, 0), at(11, 10, 0)),
		occ("overnight", at(10, 23, 0), at(11, 1, 0)),
	}
	holiday := occ("holiday", at(10, 0, 0), at(11, 0, 0))
	holiday.AllDay = true
	occurrences = append(occurrences, holiday)

	d := BuildDay(occurrences, at(10, 12, 0), time.UTC, at(10, 8, 0), testOpts)

	if d.Date != "2025-03-10" || d.Weekday != "Monday" || !d.IsToday {
		t.Errorf("header = %s %s today=%v", d.Date, d.Weekday, d.IsToday)
	}
	if len(d.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(d.Blocks))
	}
	if len(d.AllDay) != 2 {
		t.Errorf("got %d all-day items, want holiday and overnight", len(d.AllDay))
	}
	if d.MaxColumns != 2 || d.Concurrency != 2 {
		t.Errorf("MaxColumns = %d, Concurrency = %d, want 2 and 2", d.MaxColumns, d.Concurrency)
	}
	if len(d.Hours) != 24 || d.Hours[9].TopPx != 540 || d.Hours[9].Label != "09:00" {
		t.Errorf("hours = %+v", d.Hours)
	}

	tests := []struct {
		title    string
		col      int
		count    int
		top      float64
		height   float64
		left     float64
		widthPct float64
	}{
		{"A", 0, 2, 540, 60, 0, 50},
		{"B", 1, 2, 570, 60, 50, 50},
		{"C", 0, 2, 600, 60, 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			b := blockByTitle(t, d, tt.title)
			if b.ColumnIndex != tt.col || b.ColumnCount != tt.count {
				t.Errorf("column = %d/%d, want %d/%d", b.ColumnIndex, b.ColumnCount, tt.col, tt.count)
			}
			if b.TopPx != tt.top || b.HeightPx != tt.height {
				t.Errorf("geometry = (%v, %v), want (%v, %v)", b.TopPx, b.HeightPx, tt.top, tt.height)
			}
			if b.LeftPct != tt.left || b.WidthPct != tt.widthPct {
				t.Errorf("box = (%v, %v), want (%v, %v)", b.LeftPct, b.WidthPct, tt.left, tt.widthPct)
			}
		})
	}
}

func TestBuildDayStableIDs(t *testing.T) {
	occurrences := []model.Occurrence{
		occ("A", at(10, 9, 0), at(10, 10, 0)),
		occ("B", at(10, 9, 0), at(10, 10, 0)),
	}
	first := BuildDay(occurrences, at(10, 0, 0), time.UTC, at(1, 0, 0), testOpts)
	reversed := []model.Occurrence{occurrences[1], occurrences[0]}
	second := BuildDay(reversed, at(10, 0, 0), time.UTC, at(1, 0, 0), testOpts)

	for i := range first.Blocks {
		if first.Blocks[i].ID != second.Blocks[i].ID || first.Blocks[i].ColumnIndex != second.Blocks[i].ColumnIndex {
			t.Errorf("block %d differs: %+v vs %+v", i, first.Blocks[i], second.Blocks[i])
		}
	}
}

func TestBuildDayDeduplicates(t *testing.T) {
	o := occ("A", at(10, 9, 0), at(10, 10, 0))
	d := BuildDay([]model.Occurrence{o, o}, at(10, 0, 0), time.UTC, at(1, 0, 0), testOpts)
	if len(d.Blocks) != 1 {
		t.Errorf("got %d blocks, want 1", len(d.Blocks))
	}
}

func TestBuildDayZeroDurationFloor(t *testing.T) {
	d := BuildDay([]model.Occurrence{occ("ping", at(10, 12, 0), at(10, 12, 0))}, at(10, 0, 0), time.UTC, at(1, 0, 0), testOpts)
	if len(d.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(d.Blocks))
	}
	if d.Blocks[0].HeightPx != testOpts.Scale.MinHeightPx {
		t.Errorf("height = %v, want floor %v", d.Blocks[0].HeightPx, testOpts.Scale.MinHeightPx)
	}
}

func TestBuildDayWindowOffset(t *testing.T) {
	opts := testOpts
	opts.StartHour, opts.EndHour = 8, 18
	d := BuildDay([]model.Occurrence{occ("A", at(10, 9, 0), at(10, 10, 0))}, at(10, 0, 0), time.UTC, at(1, 0, 0), opts)

	if d.HeightPx != 600 {
		t.Errorf("HeightPx = %v, want 600", d.HeightPx)
	}
	if d.Blocks[0].TopPx != 60 {
		t.Errorf("TopPx = %v, want 60", d.Blocks[0].TopPx)
	}
	if d.Hours[0].Hour != 8 || d.Hours[0].TopPx != 0 {
		t.Errorf("first hour = %+v", d.Hours[0])
	}
}

func TestBuildDayHidesAllDay(t *testing.T) {
	opts := testOpts
	opts.ShowAllDay = false
	h := occ("holiday", at(10, 0, 0), at(11, 0, 0))
	h.AllDay = true
	d := BuildDay([]model.Occurrence{h}, at(10, 0, 0), time.UTC, at(1, 0, 0), opts)
	if len(d.AllDay) != 0 || len(d.Blocks) != 0 {
		t.Errorf("all-day = %v blocks = %v, want none", d.AllDay, d.Blocks)
	}
}

func TestWeekStartOf(t *testing.T) {
	wed := at(12, 15, 0) // Wednesday
	tests := []struct {
		weekStart string
		want      string
	}{
		{"monday", "2025-03-10"},
		{"sunday", "2025-03-09"},
		{"bogus", "2025-03-10"},
	}
	for _, tt := range tests {
		t.Run(tt.weekStart, func(t *testing.T) {
			if got := WeekStartOf(wed, time.UTC, tt.weekStart).Format(dateLayout); got != tt.want {
				t.Errorf("WeekStartOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildWeek(t *testing.T) {
	occurrences := []model.Occurrence{
		occ("mon", at(10, 9, 0), at(10, 10, 0)),
		occ("sun", at(16, 9, 0), at(16, 10, 0)),
	}
	w := BuildWeek(occurrences, at(12, 0, 0), time.UTC, "monday", at(1, 0, 0), testOpts)

	if w.Start != "2025-03-10" || w.End != "2025-03-16" || len(w.Days) != 7 {
		t.Fatalf("week = %s..%s (%d days)", w.Start, w.End, len(w.Days))
	}
	if len(w.Days[0].Blocks) != 1 || len(w.Days[6].Blocks) != 1 {
		t.Errorf("blocks per day: mon=%d sun=%d", len(w.Days[0].Blocks), len(w.Days[6].Blocks))
	}
	if w.Busiest != 1 {
		t.Errorf("Busiest = %d, want 1", w.Busiest)
	}
}

func TestBuildWeekConcurrency(t *testing.T) {
	occurrences := []model.Occurrence{
		occ("mon", at(10, 9, 0), at(10, 10, 0)),
		occ("wed-a", at(12, 9, 0), at(12, 12, 0)),
		occ("wed-b", at(12, 10, 0), at(12, 11, 0)),
		occ("wed-c", at(12, 10, 30), at(12, 11, 30)),
		occ("wed-d", at(12, 12, 0), at(12, 13, 0)),
		occ("fri-ping", at(14, 8, 0), at(14, 8, 0)),
	}
	w := BuildWeek(occurrences, at(12, 0, 0), time.UTC, "monday", at(1, 0, 0), testOpts)

	tests := []struct {
		day  int
		want int
	}{
		{0, 1},
		{1, 0},
		{2, 3},
		{4, 0},
	}
	for _, tt := range tests {
		if got := w.Days[tt.day].Concurrency; got != tt.want {
			t.Errorf("%s Concurrency = %d, want %d", w.Days[tt.day].Date, got, tt.want)
		}
	}
	if w.Busiest != 3 {
		t.Errorf("Busiest = %d, want 3", w.Busiest)
	}
	if len(w.Days[4].Blocks) != 1 {
		t.Errorf("zero-length event still gets a block, got %d", len(w.Days[4].Blocks))
	}
}

func TestBuildMonth(t *testing.T) {
	var occurrences []model.Occurrence
	for i := 0; i < 5; i++ {
		occurrences = append(occurrences, occ(string(rune('a'+i)), at(10, 9+i, 0), at(10, 10+i, 0)))
	}
	m := BuildMonth(occurrences, at(15, 0, 0), time.UTC, "monday", at(10, 12, 0))

	if m.Year != 2025 || m.Month != "March" || len(m.Weeks) != 6 {
		t.Fatalf("month = %d %s with %d weeks", m.Year, m.Month, len(m.Weeks))
	}
	// March 1st 2025 is a Saturday; the grid starts Monday Feb 24th.
	if first := m.Weeks[0][0]; first.Date != "2025-02-24" || first.InMonth {
		t.Errorf("first cell = %+v", first)
	}

	var cell MonthCell
	for _, row := range m.Weeks {
		for _, c := range row {
			if c.Date == "2025-03-10" {
				cell = c
			}
		}
	}
	if cell.Count != 5 || len(cell.Titles) != 3 || cell.MoreCount != 2 || !cell.IsToday {
		t.Errorf("cell = %+v", cell)
	}
}

func TestParseDate(t *testing.T) {
	now := at(10, 15, 30)

	got, err := ParseDate("", time.UTC, now)
	if err != nil || !got.Equal(at(10, 0, 0)) {
		t.Errorf("ParseDate(\"\") = %v, %v", got, err)
	}
	got, err = ParseDate("2025-03-14", time.UTC, now)
	if err != nil || !got.Equal(at(14, 0, 0)) {
		t.Errorf("ParseDate(2025-03-14) = %v, %v", got, err)
	}
	if _, err := ParseDate("14/03/2025", time.UTC, now); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}
