package metrics

import (
	"fmt"
	"math"
)

// Priority ranks a recommendation.
type Priority string

// Recommendation priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a rule-derived scheduling suggestion. Recommendations
// are fully reproducible: the same summary always yields the same list, in
// the same order. They double as the local fallback when the AI insight
// call is disabled or fails.
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Metrics     []string `json:"metrics"`
	Priority    Priority `json:"priority"`
}

// Fixed thresholds for the rule engine.
const (
	emptySessionRatioMax = 0.2
	fillRateLow          = 50.0
	fillRateHigh         = 90.0
	cancellationRateMax  = 15.0
	trendSwingPct        = 10.0
	waitlistRateMax      = 10.0
	revenuePerSeatFloor  = 400.0
)

// Recommend evaluates the summary for subject (a class, trainer, or slot
// label used in the generated text) against fixed thresholds.
func Recommend(subject string, sum Summary) []Recommendation {
	if sum.SessionCount == 0 {
		return nil
	}

	var recs []Recommendation
	add := func(priority Priority, title, description string, metrics ...string) {
		recs = append(recs, Recommendation{
			Title:       title,
			Description: description,
			Metrics:     metrics,
			Priority:    priority,
		})
	}

	if sum.EmptySessionRatio > emptySessionRatioMax {
		add(PriorityHigh,
			"Reduce or cancel underused sessions",
			fmt.Sprintf("%.0f%% of %s sessions ran with zero check-ins. Consider trimming the schedule or merging slots.", sum.EmptySessionRatio*100, subject),
			fmt.Sprintf("empty sessions: %.0f%%", sum.EmptySessionRatio*100),
			fmt.Sprintf("sessions: %d", sum.SessionCount))
	}
	if sum.AvgFillRatePct < fillRateLow {
		add(PriorityHigh,
			"Low fill rate",
			fmt.Sprintf("%s fills only %.1f%% of available capacity. Review time slot, trainer pairing, or pricing.", subject, sum.AvgFillRatePct),
			fmt.Sprintf("avg fill rate: %.1f%%", sum.AvgFillRatePct),
			fmt.Sprintf("avg check-ins: %.1f", sum.AvgCheckIns))
	} else if sum.AvgFillRatePct > fillRateHigh {
		add(PriorityMedium,
			"Expand capacity",
			fmt.Sprintf("%s runs at %.1f%% capacity. A larger room or an extra slot could capture waitlisted demand.", subject, sum.AvgFillRatePct),
			fmt.Sprintf("avg fill rate: %.1f%%", sum.AvgFillRatePct),
			fmt.Sprintf("waitlist rate: %.1f%%", sum.WaitlistRatePct))
	}
	if sum.CancellationRatePct > cancellationRateMax {
		add(PriorityHigh,
			"High late-cancellation rate",
			fmt.Sprintf("%.1f%% of %s bookings cancel late, an estimated %.0f in lost revenue. Consider a stricter cancellation window.", sum.CancellationRatePct, subject, sum.RevenueLostToCancellation),
			fmt.Sprintf("cancellation rate: %.1f%%", sum.CancellationRatePct),
			fmt.Sprintf("est. revenue lost: %.0f", sum.RevenueLostToCancellation))
	}
	if math.Abs(sum.TrendPct) > trendSwingPct {
		switch sum.TrendDirection {
		case TrendDeclining:
			add(PriorityHigh,
				"Attendance declining",
				fmt.Sprintf("%s attendance dropped %.1f%% between the first and second half of the period.", subject, math.Abs(sum.TrendPct)),
				fmt.Sprintf("trend: %.1f%%", sum.TrendPct))
		case TrendGrowing:
			add(PriorityLow,
				"Attendance growing",
				fmt.Sprintf("%s attendance grew %.1f%% over the period. Worth protecting this slot.", subject, sum.TrendPct),
				fmt.Sprintf("trend: +%.1f%%", sum.TrendPct))
		case TrendStable:
			// Unreachable: a stable trend has TrendPct == 0.
		}
	}
	if sum.WaitlistRatePct > waitlistRateMax {
		add(PriorityMedium,
			"Waitlist pressure",
			fmt.Sprintf("%.1f%% of %s bookings land on the waitlist. Demand exceeds supply at this slot.", sum.WaitlistRatePct, subject),
			fmt.Sprintf("waitlist rate: %.1f%%", sum.WaitlistRatePct))
	}
	if sum.RevenuePerSeat > 0 && sum.RevenuePerSeat < revenuePerSeatFloor {
		add(PriorityMedium,
			"Low revenue per seat",
			fmt.Sprintf("%s earns %.0f per checked-in attendee, below the %.0f floor. Review pricing or non-paid attendance.", subject, sum.RevenuePerSeat, revenuePerSeatFloor),
			fmt.Sprintf("revenue per seat: %.0f", sum.RevenuePerSeat))
	}

	return recs
}
