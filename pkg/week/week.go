// Package week computes the seven-day calendar window the dashboard
// displays and buckets dates into it.
package week

import "time"

// StartDay selects the week-start convention. The primary calendar is
// Monday-anchored; legacy views may request Sunday.
type StartDay int

// Week-start conventions.
const (
	StartMonday StartDay = iota
	StartSunday
)

// Days returns the seven calendar dates of the week containing ref, in
// order from the configured start day. Dates are truncated to midnight in
// ref's location.
func Days(ref time.Time, start StartDay) [7]time.Time {
	first := startOfWeek(ref, start)
	var days [7]time.Time
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// DayIndex returns the position of date within days, matching on calendar
// day only. The second return is false when the date falls outside the
// displayed week; callers drop such records.
func DayIndex(date time.Time, days [7]time.Time) (int, bool) {
	for i, d := range days {
		if sameDay(date, d) {
			return i, true
		}
	}
	return 0, false
}

// startOfWeek returns midnight of the week's first day.
func startOfWeek(ref time.Time, start StartDay) time.Time {
	t := truncateToDay(ref)
	switch start {
	case StartSunday:
		return t.AddDate(0, 0, -int(t.Weekday()))
	case StartMonday:
		fallthrough
	default:
		// time.Weekday puts Sunday at 0; shift so Monday is 0.
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset)
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
