// Package metrics computes performance aggregates over session records:
// fill rate, revenue, cancellation behavior, and attendance trend, grouped
// by class, trainer, or schedule slot. All computations are pure and guard
// every denominator; empty input yields an all-zero summary, never an error.
package metrics

import (
	"fmt"
	"sort"

	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
)

// TrendDirection compares second-half attendance against first-half.
type TrendDirection string

// Trend directions.
const (
	TrendGrowing   TrendDirection = "growing"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Summary is the aggregate view over one group of sessions. Rate fields are
// percentages in [0,100]; TrendPct is signed and unbounded.
type Summary struct {
	SessionCount              int            `json:"session_count"`
	AvgCheckIns               float64        `json:"avg_check_ins"`
	AvgCapacity               float64        `json:"avg_capacity"`
	AvgFillRatePct            float64        `json:"avg_fill_rate_pct"`
	TotalRevenue              float64        `json:"total_revenue"`
	AvgRevenue                float64        `json:"avg_revenue"`
	CancellationRatePct       float64        `json:"cancellation_rate_pct"`
	WaitlistRatePct           float64        `json:"waitlist_rate_pct"`
	RevenuePerSeat            float64        `json:"revenue_per_seat"`
	RevenueLostToCancellation float64        `json:"revenue_lost_to_cancellation"`
	EmptySessionRatio         float64        `json:"empty_session_ratio"`
	TrendDirection            TrendDirection `json:"trend_direction"`
	TrendPct                  float64        `json:"trend_pct"`
	BestSessionID             string         `json:"best_session_id,omitempty"`
	BestCheckIns              int            `json:"best_check_ins"`
	WorstSessionID            string         `json:"worst_session_id,omitempty"`
	WorstCheckIns             int            `json:"worst_check_ins"`
}

// Aggregate computes the summary for a list of sessions. The list is sorted
// chronologically before the trend split; the input slice is not modified.
func Aggregate(sessions []session.Record) Summary {
	if len(sessions) == 0 {
		return Summary{TrendDirection: TrendStable}
	}

	sorted := make([]session.Record, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var (
		capacitySum, checkedInSum, bookedSum int
		lateCancelledSum, waitlistedSum      int
		revenueSum                           float64
		emptySessions                        int
	)
	best, worst := 0, 0
	for i, s := range sorted {
		capacitySum += s.Capacity
		checkedInSum += s.CheckedIn
		bookedSum += s.Booked
		lateCancelledSum += s.LateCancelled
		waitlistedSum += s.Waitlisted
		revenueSum += s.Revenue
		if s.CheckedIn == 0 {
			emptySessions++
		}
		if s.CheckedIn > sorted[best].CheckedIn {
			best = i
		}
		if s.CheckedIn < sorted[worst].CheckedIn {
			worst = i
		}
	}

	n := float64(len(sorted))
	sum := Summary{
		SessionCount:      len(sorted),
		AvgCheckIns:       float64(checkedInSum) / n,
		AvgCapacity:       float64(capacitySum) / n,
		TotalRevenue:      revenueSum,
		AvgRevenue:        revenueSum / n,
		EmptySessionRatio: float64(emptySessions) / n,
		BestSessionID:     sorted[best].SessionID,
		BestCheckIns:      sorted[best].CheckedIn,
		WorstSessionID:    sorted[worst].SessionID,
		WorstCheckIns:     sorted[worst].CheckedIn,
	}
	if capacitySum > 0 {
		sum.AvgFillRatePct = float64(checkedInSum) / float64(capacitySum) * 100
	}
	if bookedSum > 0 {
		sum.CancellationRatePct = float64(lateCancelledSum) / float64(bookedSum) * 100
		sum.WaitlistRatePct = float64(waitlistedSum) / float64(bookedSum) * 100
	}
	if checkedInSum > 0 {
		sum.RevenuePerSeat = revenueSum / float64(checkedInSum)
	}
	sum.RevenueLostToCancellation = float64(lateCancelledSum) * sum.RevenuePerSeat

	sum.TrendDirection, sum.TrendPct = trend(sorted)
	return sum
}

// trend splits the chronologically sorted sessions at floor(n/2) and
// compares mean check-ins between halves.
func trend(sorted []session.Record) (TrendDirection, float64) {
	mid := len(sorted) / 2
	if mid == 0 {
		return TrendStable, 0
	}
	firstAvg := meanCheckIns(sorted[:mid])
	secondAvg := meanCheckIns(sorted[mid:])

	pct := 0.0
	if firstAvg > 0 {
		pct = (secondAvg - firstAvg) / firstAvg * 100
	}
	switch {
	case secondAvg > firstAvg:
		return TrendGrowing, pct
	case secondAvg < firstAvg:
		return TrendDeclining, pct
	default:
		return TrendStable, pct
	}
}

func meanCheckIns(sessions []session.Record) float64 {
	if len(sessions) == 0 {
		return 0
	}
	total := 0
	for _, s := range sessions {
		total += s.CheckedIn
	}
	return float64(total) / float64(len(sessions))
}

// KeyFunc derives the grouping key for one session.
type KeyFunc func(session.Record) string

// ByClass groups on class name alone.
func ByClass(r session.Record) string { return r.ClassName }

// ByTrainer groups on trainer name alone.
func ByTrainer(r session.Record) string { return r.TrainerName }

// BySlot groups on the full schedule slot: class, day, time, and location.
func BySlot(r session.Record) string {
	return fmt.Sprintf("%s|%s|%s|%s", r.ClassName, r.Day, r.Time, r.Location)
}

// AggregateBy buckets sessions with keyFn and aggregates each bucket.
// Bucket membership follows input order, so summaries are reproducible.
func AggregateBy(sessions []session.Record, keyFn KeyFunc) map[string]Summary {
	buckets := make(map[string][]session.Record)
	for _, s := range sessions {
		key := keyFn(s)
		buckets[key] = append(buckets[key], s)
	}
	out := make(map[string]Summary, len(buckets))
	for key, group := range buckets {
		out[key] = Aggregate(group)
	}
	return out
}
