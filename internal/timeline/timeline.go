// Package timeline maps wall-clock time of day onto the vertical pixel
// axis of a day column.
//
// All functions here are pure arithmetic. Out-of-range minutes are not
// rejected; a caller passing them gets the linear extrapolation.
package timeline

import "time"

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
)

// MinutesToPixels converts a minute offset into a pixel offset.
func MinutesToPixels(minutes int, pxPerMinute float64) float64 {
	return float64(minutes) * pxPerMinute
}

// EventToGeometry returns the top offset and height of an event block.
//
// The gap is applied on both edges so that back-to-back events do not
// touch. heightPx never drops below minHeightPx, which keeps zero and
// negative duration events clickable.
func EventToGeometry(startMinutes, endMinutes int, pxPerMinute, minHeightPx, verticalGapPx float64) (topPx, heightPx float64) {
	topPx = MinutesToPixels(startMinutes, pxPerMinute) + verticalGapPx
	heightPx = MinutesToPixels(endMinutes-startMinutes, pxPerMinute) - 2*verticalGapPx
	if heightPx < minHeightPx {
		heightPx = minHeightPx
	}
	return topPx, heightPx
}

// Scale bundles the geometry parameters of a rendered day column.
type Scale struct {
	// HourHeightPx is the height of one hour row.
	HourHeightPx float64
	// MinHeightPx is the floor applied to every event block.
	MinHeightPx float64
	// VerticalGapPx is trimmed from the top and bottom of every block.
	VerticalGapPx float64
}

func (s Scale) PxPerMinute() float64 {
	return s.HourHeightPx / MinutesPerHour
}

// Geometry is EventToGeometry with this scale's parameters.
func (s Scale) Geometry(startMinutes, endMinutes int) (topPx, heightPx float64) {
	return EventToGeometry(startMinutes, endMinutes, s.PxPerMinute(), s.MinHeightPx, s.VerticalGapPx)
}

// DayHeight is the pixel height of a full 24h column.
func (s Scale) DayHeight() float64 {
	return MinutesToPixels(MinutesPerDay, s.PxPerMinute())
}

// WallClockMinutes returns the minutes since local midnight of t in loc.
// A nil loc means time.Local.
func WallClockMinutes(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return lt.Hour()*MinutesPerHour + lt.Minute()
}

// StartOfDay returns local midnight of the calendar day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DaySpan resolves [start, end) onto the calendar day containing day.
//
// ok is false when the range begins before that day's midnight or ends
// after the next midnight. An end exactly at the next midnight maps to
// MinutesPerDay.
func DaySpan(start, end, day time.Time, loc *time.Location) (startMin, endMin int, ok bool) {
	dayStart := StartOfDay(day, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	if start.Before(dayStart) || !start.Before(dayEnd) || end.After(dayEnd) {
		return 0, 0, false
	}

	startMin = WallClockMinutes(start, loc)
	if end.Equal(dayEnd) {
		endMin = MinutesPerDay
	} else {
		endMin = WallClockMinutes(end, loc)
	}
	return startMin, endMin, true
}

// Hours lists the hour gridlines between startHour and endHour
// (inclusive start, exclusive end), clamped to [0, 24].
func Hours(startHour, endHour int) []int {
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}
	if endHour <= startHour {
		return nil
	}
	out := make([]int, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		out = append(out, h)
	}
	return out
}
