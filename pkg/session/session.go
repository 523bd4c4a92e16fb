// Package session defines the shared data model for fitness-studio class
// sessions: the ingested record, the active-schedule reference table, and the
// compact numeric digest handed to the AI insight generator.
package session

import "time"

// DefaultDurationMinutes is applied by the ingester when a record carries no
// explicit duration. The source exports never encode class length.
const DefaultDurationMinutes = 60

// Status marks whether a class slot is currently on the live schedule.
type Status string

// Session statuses.
const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Record is one ingested class session. Records are immutable once created;
// every derived view is recomputed from them rather than patched in place.
type Record struct {
	Date            time.Time `json:"date"`
	SessionID       string    `json:"session_id"`
	Day             string    `json:"day"`
	Time            string    `json:"time"`
	ClassName       string    `json:"class_name"`
	ClassType       string    `json:"class_type,omitempty"`
	TrainerName     string    `json:"trainer_name"`
	Location        string    `json:"location"`
	Status          Status    `json:"status,omitempty"`
	Capacity        int       `json:"capacity"`
	CheckedIn       int       `json:"checked_in"`
	Booked          int       `json:"booked"`
	LateCancelled   int       `json:"late_cancelled"`
	Waitlisted      int       `json:"waitlisted"`
	NonPaid         int       `json:"non_paid"`
	DurationMinutes int       `json:"duration_minutes"`
	Revenue         float64   `json:"revenue"`
}

// FillRatePct returns checked-in over capacity as a percentage. A zero
// capacity yields 0, never a division error.
func (r Record) FillRatePct() float64 {
	if r.Capacity <= 0 {
		return 0
	}
	return float64(r.CheckedIn) / float64(r.Capacity) * 100
}

// Duration returns the record's duration, falling back to the default when
// the ingester left it unset.
func (r Record) Duration() int {
	if r.DurationMinutes <= 0 {
		return DefaultDurationMinutes
	}
	return r.DurationMinutes
}

// ReferenceSlot is one currently-live class slot in a studio's reference
// schedule.
type ReferenceSlot struct {
	ClassName string `json:"class_name"`
	Location  string `json:"location"`
	Time      string `json:"time"`
}

// Reference maps a weekday name ("Monday"...) to the slots live on that day.
// It is optional input; without it the status classifier falls back to a
// recency heuristic.
type Reference map[string][]ReferenceSlot

// Digest is the compact numeric summary supplied to the AI insight
// generator. It is derived data only; the generator also receives the raw
// records.
type Digest struct {
	TotalSessions int      `json:"total_sessions"`
	AvgFillRate   float64  `json:"avg_fill_rate"`
	AvgClassSize  float64  `json:"avg_class_size"`
	AvgRevenue    float64  `json:"avg_revenue"`
	CancelRate    float64  `json:"cancel_rate"`
	TopClasses    []string `json:"top_classes"`
	LowClasses    []string `json:"low_classes"`
	PeakDays      []string `json:"peak_days"`
	PeakTimes     []string `json:"peak_times"`
}
