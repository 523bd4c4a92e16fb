// Package status decides whether a session's class slot is still on the
// live schedule. With a reference table it fuzzy-matches class, location,
// and time; without one it falls back to a recency window.
package status

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
)

// RecencyWindow is the fallback rule: sessions dated within this window of
// the reference instant count as active.
const RecencyWindow = 30 * 24 * time.Hour

// Leading filler tokens stripped before comparison. Studio exports
// inconsistently prefix class and location names.
var fillerPrefixes = []string{"studio", "the"}

// Classify returns the session's status. The function is pure and total: it
// never panics, and a malformed (zero) date classifies as Inactive.
//
// With a reference table, a session is Active only when a slot on the same
// weekday matches all three of class name, location, and time. Name and
// location use normalized substring containment, which can produce false
// positives for very short class names; this mirrors the matching rule the
// dashboard has always used. Times compare on their first five characters,
// so "18:00" and "18:00:00" agree.
func Classify(rec session.Record, ref session.Reference, now time.Time) session.Status {
	if len(ref) == 0 {
		return classifyByRecency(rec, now)
	}

	slots, ok := ref[rec.Day]
	if !ok {
		// Weekday names may differ in case between export and reference.
		for day, daySlots := range ref {
			if strings.EqualFold(day, rec.Day) {
				slots = daySlots
				break
			}
		}
	}

	for _, slot := range slots {
		if fuzzyMatch(rec.ClassName, slot.ClassName) &&
			fuzzyMatch(rec.Location, slot.Location) &&
			timeMatch(rec.Time, slot.Time) {
			return session.StatusActive
		}
	}
	return session.StatusInactive
}

func classifyByRecency(rec session.Record, now time.Time) session.Status {
	if rec.Date.IsZero() {
		return session.StatusInactive
	}
	age := now.Sub(rec.Date)
	if age < 0 {
		age = -age
	}
	if age <= RecencyWindow {
		return session.StatusActive
	}
	return session.StatusInactive
}

// fuzzyMatch reports whether either normalized name contains the other.
func fuzzyMatch(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// timeMatch compares the first five characters, which covers "HH:MM" with
// or without trailing seconds.
func timeMatch(a, b string) bool {
	ta, tb := strings.TrimSpace(a), strings.TrimSpace(b)
	if len(ta) > 5 {
		ta = ta[:5]
	}
	if len(tb) > 5 {
		tb = tb[:5]
	}
	return ta != "" && ta == tb
}

// normalize lowercases, strips leading filler tokens, and removes every
// non-alphanumeric rune.
func normalize(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	for changed := true; changed; {
		changed = false
		for _, prefix := range fillerPrefixes {
			if strings.HasPrefix(lowered, prefix+" ") {
				lowered = strings.TrimSpace(strings.TrimPrefix(lowered, prefix+" "))
				changed = true
			}
		}
	}
	var b strings.Builder
	for _, r := range lowered {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
