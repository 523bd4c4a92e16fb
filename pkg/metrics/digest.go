package metrics

import (
	"sort"

	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
)

// How many classes/days/times the digest surfaces per list.
const digestTopN = 3

// Digest reduces a session list to the compact numeric summary the AI
// insight generator consumes. Ranked lists are sorted by value with name as
// tie-break, so the digest (and therefore the prompt and its cache key) is
// stable for identical input.
func Digest(sessions []session.Record) session.Digest {
	sum := Aggregate(sessions)
	d := session.Digest{
		TotalSessions: sum.SessionCount,
		AvgFillRate:   sum.AvgFillRatePct,
		AvgClassSize:  sum.AvgCheckIns,
		AvgRevenue:    sum.AvgRevenue,
		CancelRate:    sum.CancellationRatePct,
	}
	if len(sessions) == 0 {
		return d
	}

	byClass := AggregateBy(sessions, ByClass)
	d.TopClasses = rankKeys(byClass, true)
	d.LowClasses = rankKeys(byClass, false)
	d.PeakDays = rankKeys(AggregateBy(sessions, func(r session.Record) string { return r.Day }), true)
	d.PeakTimes = rankKeys(AggregateBy(sessions, func(r session.Record) string { return r.Time }), true)
	return d
}

// rankKeys orders group keys by average check-ins and returns the top (or
// bottom) few.
func rankKeys(groups map[string]Summary, descending bool) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := groups[keys[i]].AvgCheckIns, groups[keys[j]].AvgCheckIns
		if a != b {
			if descending {
				return a > b
			}
			return a < b
		}
		return keys[i] < keys[j]
	})
	if len(keys) > digestTopN {
		keys = keys[:digestTopN]
	}
	return keys
}
