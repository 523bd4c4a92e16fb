// Package calendar reconstructs the weekly class grid from flat session
// records: it places each record on a day of the displayed week, clusters
// temporal overlaps for stacked layout, and flags trainer double-bookings
// across locations.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/clock"
	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
	"github.com/codeGROOVE-dev/fitPulse/pkg/week"
)

// PlacedClass is one session positioned on the displayed week. Placements
// are derived values, recomputed whenever the week or filters change, and
// never persisted.
type PlacedClass struct {
	Record           session.Record
	DayIndex         int // 0-6 from the week's start day
	StartMinutes     int // minutes since midnight
	DurationMinutes  int
	OverlapPosition  int // column within the overlap group
	OverlapGroupSize int // total members of the overlap group
}

// EndMinutes returns the exclusive end of the placement interval.
func (p PlacedClass) EndMinutes() int {
	return p.StartMinutes + p.DurationMinutes
}

// Clock returns the placement's start as a wall-clock time.
func (p PlacedClass) Clock() clock.Time {
	return clock.Time{Hour: p.StartMinutes / 60, Minute: p.StartMinutes % 60}
}

// SkipCounts tallies records excluded from placement, by reason. The
// counters exist so callers (and tests) can assert on data quality without
// any record ever aborting the batch.
type SkipCounts struct {
	UnparseableTime int // time matched neither clock format
	OutsideWeek     int // date not in the displayed week
	OutsideWindow   int // parsed fine but before/after display hours
}

// Total returns the number of records excluded for any reason.
func (s SkipCounts) Total() int {
	return s.UnparseableTime + s.OutsideWeek + s.OutsideWindow
}

// Place builds the week's placements from raw records. Records with
// unparseable times, dates outside the displayed week, or times outside the
// display window are counted and dropped, never surfaced as errors. Overlap
// positions are assigned per day before returning; output order is by day,
// then start time, with source order breaking ties.
func Place(records []session.Record, days [7]time.Time, window clock.Window) ([]PlacedClass, SkipCounts) {
	var skips SkipCounts
	byDay := make([][]PlacedClass, 7)

	for _, rec := range records {
		t, err := clock.Parse(rec.Time)
		if err != nil {
			skips.UnparseableTime++
			continue
		}
		idx, ok := week.DayIndex(rec.Date, days)
		if !ok {
			skips.OutsideWeek++
			continue
		}
		if !window.Contains(t) {
			skips.OutsideWindow++
			continue
		}
		byDay[idx] = append(byDay[idx], PlacedClass{
			Record:          rec,
			DayIndex:        idx,
			StartMinutes:    t.Minutes(),
			DurationMinutes: rec.Duration(),
		})
	}

	var placed []PlacedClass
	for _, day := range byDay {
		placed = append(placed, GroupOverlaps(day)...)
	}
	return placed, skips
}

// GroupOverlaps partitions one day's placements into overlap clusters and
// annotates each member with its column position and group size. Two
// intervals overlap when s1 < e2 && s2 < e1 (half-open). A class joins the
// first existing group containing any member it overlaps. Because classes
// are processed in start order, a class can never bridge two existing
// groups, so this yields the full transitive clusters deterministically.
func GroupOverlaps(day []PlacedClass) []PlacedClass {
	if len(day) == 0 {
		return nil
	}

	sorted := make([]PlacedClass, len(day))
	copy(sorted, day)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMinutes < sorted[j].StartMinutes
	})

	var groups [][]int // indices into sorted
	for i := range sorted {
		claimed := false
		for g := range groups {
			for _, member := range groups[g] {
				if intervalsOverlap(sorted[i], sorted[member]) {
					groups[g] = append(groups[g], i)
					claimed = true
					break
				}
			}
			if claimed {
				break
			}
		}
		if !claimed {
			groups = append(groups, []int{i})
		}
	}

	for _, group := range groups {
		for pos, idx := range group {
			sorted[idx].OverlapPosition = pos
			sorted[idx].OverlapGroupSize = len(group)
		}
	}
	return sorted
}

func intervalsOverlap(a, b PlacedClass) bool {
	return a.StartMinutes < b.EndMinutes() && b.StartMinutes < a.EndMinutes()
}

// ConflictKey identifies a trainer double-booking: the same trainer at the
// exact same day and time, regardless of location or class.
type ConflictKey struct {
	Trainer string
	Day     string
	Time    string // zero-padded 24-hour "HH:MM"
}

// String renders the composite key the way the dashboard displays it.
func (k ConflictKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Trainer, k.Day, k.Time)
}

// Conflicts scans placements for one calendar day across all locations and
// returns every (trainer, day, time) combination seen more than once, with
// its occurrence count. Conflicts only matter within a single date, so
// callers run this per selected day, not over the whole week. The data is
// reported, not rejected: no write path exists to prevent it.
func Conflicts(placed []PlacedClass) map[ConflictKey]int {
	seen := make(map[ConflictKey]int)
	for _, p := range placed {
		key := ConflictKey{
			Trainer: p.Record.TrainerName,
			Day:     p.Record.Day,
			Time:    p.Clock().String(),
		}
		seen[key]++
	}

	conflicts := make(map[ConflictKey]int)
	for key, count := range seen {
		if count > 1 {
			conflicts[key] = count
		}
	}
	return conflicts
}

// ConflictsForDay filters placements to one day index and runs conflict
// detection over it. Convenience for date-navigation callers.
func ConflictsForDay(placed []PlacedClass, dayIndex int) map[ConflictKey]int {
	var day []PlacedClass
	for _, p := range placed {
		if p.DayIndex == dayIndex {
			day = append(day, p)
		}
	}
	return Conflicts(day)
}
