package model

import (
	"time"

	"github.com/google/uuid"
)

// occurrenceNamespace seeds the name-based UUIDs handed to the layout engine.
var occurrenceNamespace = uuid.MustParse("5b0f3c1e-7d3a-4c53-9a8e-0d6c1f2e4b71")

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, typically derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// ID returns a UUIDv5 derived from source, UID and instance key. It is
// stable across refreshes as long as the feed keeps the same UID and the
// instance keeps its start time.
func (o Occurrence) ID() string {
	name := o.SourceID + "\x00" + o.UID + "\x00" + o.InstanceKey
	return uuid.NewSHA1(occurrenceNamespace, []byte(name)).String()
}

// Overlaps reports whether the occurrence intersects [from, to).
func (o Occurrence) Overlaps(from, to time.Time) bool {
	return o.Start.Before(to) && o.End.After(from)
}

// Touches is Overlaps extended to occurrences that do not end after they
// start: those count when their start falls inside [from, to).
func (o Occurrence) Touches(from, to time.Time) bool {
	if o.Overlaps(from, to) {
		return true
	}
	return !o.End.After(o.Start) && !o.Start.Before(from) && o.Start.Before(to)
}
