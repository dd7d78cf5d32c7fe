package timeline

import (
	"reflect"
	"testing"
	"time"
)

func TestMinutesToPixels(t *testing.T) {
	tests := []struct {
		name        string
		minutes     int
		pxPerMinute float64
		want        float64
	}{
		{"zero", 0, 0.8, 0},
		{"nine am", 540, 0.8, 432},
		{"end of day", 1440, 1, 1440},
		{"negative passes through", -30, 2, -60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinutesToPixels(tt.minutes, tt.pxPerMinute); got != tt.want {
				t.Errorf("MinutesToPixels(%d, %v) = %v, want %v", tt.minutes, tt.pxPerMinute, got, tt.want)
			}
		})
	}
}

func TestEventToGeometry(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantTop    float64
		wantHeight float64
	}{
		{"one hour", 540, 600, 541, 58},
		{"zero duration hits floor", 600, 600, 601, 10},
		{"negative duration hits floor", 600, 570, 601, 10},
		{"short event hits floor", 600, 605, 601, 10},
		{"until midnight", 1380, 1440, 1381, 58},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, height := EventToGeometry(tt.start, tt.end, 1, 10, 1)
			if top != tt.wantTop || height != tt.wantHeight {
				t.Errorf("EventToGeometry(%d, %d) = (%v, %v), want (%v, %v)",
					tt.start, tt.end, top, height, tt.wantTop, tt.wantHeight)
			}
		})
	}
}

func TestEventToGeometryFloorExact(t *testing.T) {
	for _, minHeight := range []float64{0, 4, 18.5} {
		_, height := EventToGeometry(720, 720, 0.8, minHeight, 2)
		if height != minHeight {
			t.Errorf("height = %v, want exactly %v", height, minHeight)
		}
	}
}

func TestScale(t *testing.T) {
	s := Scale{HourHeightPx: 48, MinHeightPx: 18, VerticalGapPx: 1}

	if got := s.PxPerMinute(); got != 0.8 {
		t.Errorf("PxPerMinute() = %v, want 0.8", got)
	}
	if got := s.DayHeight(); got != 1152 {
		t.Errorf("DayHeight() = %v, want 1152", got)
	}

	top, height := s.Geometry(540, 600)
	if top != 433 || height != 46 {
		t.Errorf("Geometry(540, 600) = (%v, %v), want (433, 46)", top, height)
	}
}

func TestWallClockMinutes(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	utc := time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC)

	if got := WallClockMinutes(utc, time.UTC); got != 30 {
		t.Errorf("UTC minutes = %d, want 30", got)
	}
	if got := WallClockMinutes(utc, seoul); got != 9*60+30 {
		t.Errorf("KST minutes = %d, want %d", got, 9*60+30)
	}
}

func TestDaySpan(t *testing.T) {
	loc := time.UTC
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	at := func(d, h, m int) time.Time { return time.Date(2025, 3, d, h, m, 0, 0, loc) }

	tests := []struct {
		name       string
		start, end time.Time
		wantStart  int
		wantEnd    int
		wantOK     bool
	}{
		{"inside", at(10, 9, 0), at(10, 10, 0), 540, 600, true},
		{"ends at midnight", at(10, 23, 0), at(11, 0, 0), 1380, 1440, true},
		{"starts at midnight", at(10, 0, 0), at(10, 0, 30), 0, 30, true},
		{"starts previous day", at(9, 23, 0), at(10, 1, 0), 0, 0, false},
		{"ends next day", at(10, 23, 0), at(11, 1, 0), 0, 0, false},
		{"other day", at(11, 9, 0), at(11, 10, 0), 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, ok := DaySpan(tt.start, tt.end, day, loc)
			if ok != tt.wantOK || s != tt.wantStart || e != tt.wantEnd {
				t.Errorf("DaySpan() = (%d, %d, %v), want (%d, %d, %v)", s, e, ok, tt.wantStart, tt.wantEnd, tt.wantOK)
			}
		})
	}
}

func TestHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		want       []int
	}{
		{"working day", 8, 12, []int{8, 9, 10, 11}},
		{"clamped", -2, 2, []int{0, 1}},
		{"empty", 5, 5, nil},
		{"inverted", 10, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hours(tt.start, tt.end); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Hours(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
