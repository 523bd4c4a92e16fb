package metrics

import (
	"testing"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
)

func hasPriority(recs []Recommendation, title string, priority Priority) bool {
	for _, r := range recs {
		if r.Title == title && r.Priority == priority {
			return true
		}
	}
	return false
}

func TestRecommendEmptySummary(t *testing.T) {
	if recs := Recommend("Barre", Summary{}); recs != nil {
		t.Errorf("Recommend on empty summary = %v, want nil", recs)
	}
}

func TestRecommendThresholds(t *testing.T) {
	tests := []struct {
		name         string
		sum          Summary
		wantTitle    string
		wantPriority Priority
	}{
		{
			name:         "empty sessions trigger reduce",
			sum:          Summary{SessionCount: 10, EmptySessionRatio: 0.3, AvgFillRatePct: 60},
			wantTitle:    "Reduce or cancel underused sessions",
			wantPriority: PriorityHigh,
		},
		{
			name:         "low fill rate",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 35},
			wantTitle:    "Low fill rate",
			wantPriority: PriorityHigh,
		},
		{
			name:         "high fill rate suggests expansion",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 95},
			wantTitle:    "Expand capacity",
			wantPriority: PriorityMedium,
		},
		{
			name:         "cancellation rate",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 70, CancellationRatePct: 20},
			wantTitle:    "High late-cancellation rate",
			wantPriority: PriorityHigh,
		},
		{
			name:         "declining trend",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 70, TrendDirection: TrendDeclining, TrendPct: -15},
			wantTitle:    "Attendance declining",
			wantPriority: PriorityHigh,
		},
		{
			name:         "growing trend",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 70, TrendDirection: TrendGrowing, TrendPct: 25},
			wantTitle:    "Attendance growing",
			wantPriority: PriorityLow,
		},
		{
			name:         "waitlist pressure",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 70, WaitlistRatePct: 12},
			wantTitle:    "Waitlist pressure",
			wantPriority: PriorityMedium,
		},
		{
			name:         "low revenue per seat",
			sum:          Summary{SessionCount: 10, AvgFillRatePct: 70, RevenuePerSeat: 250},
			wantTitle:    "Low revenue per seat",
			wantPriority: PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Recommend("Barre", tt.sum)
			if !hasPriority(recs, tt.wantTitle, tt.wantPriority) {
				t.Errorf("Recommend() = %+v, want %q at %q", recs, tt.wantTitle, tt.wantPriority)
			}
		})
	}
}

func TestRecommendQuietSummary(t *testing.T) {
	// Healthy numbers produce no noise.
	sum := Summary{
		SessionCount:   10,
		AvgFillRatePct: 75,
		RevenuePerSeat: 800,
		TrendDirection: TrendStable,
	}
	if recs := Recommend("Barre", sum); len(recs) != 0 {
		t.Errorf("Recommend() on healthy summary = %+v, want none", recs)
	}
}

func TestRecommendDeterministic(t *testing.T) {
	sum := Summary{
		SessionCount:        10,
		AvgFillRatePct:      30,
		CancellationRatePct: 22,
		EmptySessionRatio:   0.4,
		TrendDirection:      TrendDeclining,
		TrendPct:            -18,
	}
	first := Recommend("Barre", sum)
	for range 3 {
		again := Recommend("Barre", sum)
		if len(again) != len(first) {
			t.Fatalf("lengths differ: %d vs %d", len(first), len(again))
		}
		for i := range first {
			if first[i].Title != again[i].Title || first[i].Priority != again[i].Priority {
				t.Fatalf("order differs at %d: %+v vs %+v", i, first[i], again[i])
			}
		}
	}
}

func TestDigest(t *testing.T) {
	base := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	mk := func(id, class, weekday, timeStr string, checkedIn int, offset int) session.Record {
		return session.Record{
			SessionID: id,
			Date:      base.AddDate(0, 0, offset),
			Day:       weekday,
			Time:      timeStr,
			ClassName: class,
			Capacity:  20,
			CheckedIn: checkedIn,
		}
	}
	sessions := []session.Record{
		mk("a", "PowerCycle", "Monday", "18:00", 18, 0),
		mk("b", "PowerCycle", "Monday", "18:00", 16, 7),
		mk("c", "Barre", "Tuesday", "09:00", 6, 1),
		mk("d", "Mat", "Wednesday", "07:00", 2, 2),
	}

	d := Digest(sessions)
	if d.TotalSessions != 4 {
		t.Errorf("TotalSessions = %d, want 4", d.TotalSessions)
	}
	if len(d.TopClasses) == 0 || d.TopClasses[0] != "PowerCycle" {
		t.Errorf("TopClasses = %v, want PowerCycle first", d.TopClasses)
	}
	if len(d.LowClasses) == 0 || d.LowClasses[0] != "Mat" {
		t.Errorf("LowClasses = %v, want Mat first", d.LowClasses)
	}
	if len(d.PeakDays) == 0 || d.PeakDays[0] != "Monday" {
		t.Errorf("PeakDays = %v, want Monday first", d.PeakDays)
	}
}

func TestDigestEmpty(t *testing.T) {
	d := Digest(nil)
	if d.TotalSessions != 0 || d.AvgFillRate != 0 || len(d.TopClasses) != 0 {
		t.Errorf("Digest(nil) = %+v, want zero digest", d)
	}
}
