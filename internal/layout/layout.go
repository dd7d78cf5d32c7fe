// Package layout assigns side-by-side columns to the timed events of a
// single calendar day.
//
// Compute is a pure function: it keeps no state between calls, performs
// no I/O and is safe to call concurrently with disjoint inputs.
//
// Placement is greedy first-fit over events sorted by start time, which
// uses the minimum number of columns for the day. Column counts are then
// sized per event from its direct overlaps only. Chains of partial
// overlaps (A overlaps B, B overlaps C, A does not overlap C) therefore
// let A and C report a narrower count than a connected-component sizing
// would.
package layout

import "sort"

// TimedEvent is one event of the day, resolved to local wall-clock
// minutes. Payload is carried for the caller and never inspected.
type TimedEvent struct {
	ID           string
	StartMinutes int
	EndMinutes   int
	Payload      any
}

func (e TimedEvent) duration() int {
	return e.EndMinutes - e.StartMinutes
}

// Assignment is the layout decision for one event.
type Assignment struct {
	EventID      string `json:"event_id"`
	ColumnIndex  int    `json:"column_index"`
	ColumnCount  int    `json:"column_count"`
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"`
}

// column is the sweep state of one horizontal slot.
type column struct {
	endMinutes int
}

// Compute returns one Assignment per event, in placement order.
//
// Events are placed by ascending start; equal starts put the longer
// event first, and remaining ties are ordered by ID so the result does
// not depend on input order. Malformed ranges (end <= start) are laid
// out like any other event and never cause a panic.
func Compute(events []TimedEvent) []Assignment {
	if len(events) == 0 {
		return []Assignment{}
	}

	sorted := make([]TimedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.StartMinutes != b.StartMinutes {
			return a.StartMinutes < b.StartMinutes
		}
		if da, db := a.duration(), b.duration(); da != db {
			return da > db
		}
		return a.ID < b.ID
	})

	out := make([]Assignment, len(sorted))
	var columns []column

	// Pass 1: first-fit column placement.
	for i, ev := range sorted {
		placed := -1
		for c := range columns {
			if columns[c].endMinutes <= ev.StartMinutes {
				placed = c
				break
			}
		}
		if placed < 0 {
			columns = append(columns, column{})
			placed = len(columns) - 1
		}
		columns[placed].endMinutes = ev.EndMinutes

		out[i] = Assignment{
			EventID:      ev.ID,
			ColumnIndex:  placed,
			StartMinutes: ev.StartMinutes,
			EndMinutes:   ev.EndMinutes,
		}
	}

	// Pass 2: size each event from the columns of what it directly overlaps.
	for i := range out {
		maxColumn := out[i].ColumnIndex
		for j := range out {
			if overlaps(out[i], out[j]) && out[j].ColumnIndex > maxColumn {
				maxColumn = out[j].ColumnIndex
			}
		}
		out[i].ColumnCount = maxColumn + 1
	}

	return out
}

func overlaps(a, b Assignment) bool {
	return a.StartMinutes < b.EndMinutes && a.EndMinutes > b.StartMinutes
}

// Index keys assignments by event ID. With duplicate IDs the last one wins.
func Index(assignments []Assignment) map[string]Assignment {
	m := make(map[string]Assignment, len(assignments))
	for _, a := range assignments {
		m[a.EventID] = a
	}
	return m
}

// MaxConcurrency is the largest number of events active at any single
// minute, i.e. the minimum number of columns any layout of the day needs.
// Ranges with end <= start are never active.
func MaxConcurrency(events []TimedEvent) int {
	type edge struct {
		at    int
		delta int
	}
	edges := make([]edge, 0, 2*len(events))
	for _, ev := range events {
		if ev.EndMinutes <= ev.StartMinutes {
			continue
		}
		edges = append(edges, edge{ev.StartMinutes, 1}, edge{ev.EndMinutes, -1})
	}
	// Ends sort before starts at the same minute: touching ranges do not overlap.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at != edges[j].at {
			return edges[i].at < edges[j].at
		}
		return edges[i].delta < edges[j].delta
	})

	cur, best := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > best {
			best = cur
		}
	}
	return best
}

// Box maps an assignment to horizontal percentages of the day column.
// gapPct is trimmed from the width of every block except a lone one;
// width never goes below zero.
func Box(a Assignment, gapPct float64) (leftPct, widthPct float64) {
	count := a.ColumnCount
	if count < 1 {
		count = 1
	}
	slot := 100 / float64(count)
	leftPct = float64(a.ColumnIndex) * slot
	widthPct = slot
	if count > 1 {
		widthPct -= gapPct
	}
	if widthPct < 0 {
		widthPct = 0
	}
	return leftPct, widthPct
}
