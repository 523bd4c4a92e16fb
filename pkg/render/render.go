// Package render produces the CLI views: the weekly calendar grid with
// overlap stacking and conflict flags, and the summary/recommendation
// blocks under it.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/calendar"
	"github.com/codeGROOVE-dev/fitPulse/pkg/insights"
	"github.com/codeGROOVE-dev/fitPulse/pkg/metrics"
	"github.com/fatih/color"
)

const dividerWidth = 60

// attendanceColor picks a bar color from the session's fill rate.
func attendanceColor(fillPct float64) *color.Color {
	switch {
	case fillPct >= 90:
		return color.New(color.FgGreen)
	case fillPct >= 50:
		return color.New(color.FgYellow)
	case fillPct > 0:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

// Week renders the placed calendar, one section per day. Within a day,
// classes print in start order; members of an overlap group carry a
// "col x/y" marker so stacked slots are visible in plain text. Conflicted
// (trainer, time) pairs are flagged inline.
func Week(placed []calendar.PlacedClass, days [7]time.Time) string {
	var output strings.Builder

	output.WriteString("📅 Weekly Schedule\n")
	output.WriteString(strings.Repeat("─", dividerWidth) + "\n")

	if len(placed) == 0 {
		output.WriteString("No classes placed this week\n")
		return output.String()
	}

	byDay := make([][]calendar.PlacedClass, 7)
	for _, p := range placed {
		byDay[p.DayIndex] = append(byDay[p.DayIndex], p)
	}

	for i, day := range byDay {
		if len(day) == 0 {
			continue
		}
		conflicts := calendar.Conflicts(day)

		output.WriteString(fmt.Sprintf("\n%s %s\n", days[i].Weekday(), days[i].Format("2006-01-02")))
		sorted := make([]calendar.PlacedClass, len(day))
		copy(sorted, day)
		sort.SliceStable(sorted, func(a, b int) bool {
			if sorted[a].StartMinutes != sorted[b].StartMinutes {
				return sorted[a].StartMinutes < sorted[b].StartMinutes
			}
			return sorted[a].OverlapPosition < sorted[b].OverlapPosition
		})

		for _, p := range sorted {
			line := fmt.Sprintf("  %s  %-24s %-14s %-12s",
				p.Clock(), p.Record.ClassName, p.Record.TrainerName, p.Record.Location)

			if p.OverlapGroupSize > 1 {
				line += fmt.Sprintf(" col %d/%d", p.OverlapPosition+1, p.OverlapGroupSize)
			}

			fill := p.Record.FillRatePct()
			bar := barLength(p.Record.CheckedIn)
			if bar > 0 {
				line += " " + attendanceColor(fill).Sprint(strings.Repeat("█", bar))
			}
			line += fmt.Sprintf(" %d/%d", p.Record.CheckedIn, p.Record.Capacity)

			key := calendar.ConflictKey{
				Trainer: p.Record.TrainerName,
				Day:     p.Record.Day,
				Time:    p.Clock().String(),
			}
			if _, conflicted := conflicts[key]; conflicted {
				line += " " + color.New(color.FgRed).Sprint("⚠ double-booked")
			}

			output.WriteString(line + "\n")
		}
	}

	return output.String()
}

// barLength caps the attendance bar so large classes don't wrap the line.
func barLength(checkedIn int) int {
	if checkedIn > 30 {
		return 30
	}
	return checkedIn
}

// Conflicts renders the day's trainer double-bookings, or nothing when the
// schedule is clean.
func Conflicts(conflicts map[calendar.ConflictKey]int) string {
	if len(conflicts) == 0 {
		return ""
	}

	keys := make([]calendar.ConflictKey, 0, len(conflicts))
	for key := range conflicts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var output strings.Builder
	output.WriteString("\n⚠️  Trainer Conflicts\n")
	output.WriteString(strings.Repeat("─", dividerWidth) + "\n")
	red := color.New(color.FgRed)
	for _, key := range keys {
		output.WriteString(red.Sprintf("%s: %d simultaneous sessions\n", key, conflicts[key]))
	}
	return output.String()
}

// Summary renders the aggregate performance block.
func Summary(title string, sum metrics.Summary) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("\n📊 %s\n", title))
	output.WriteString(strings.Repeat("─", dividerWidth) + "\n")
	if sum.SessionCount == 0 {
		output.WriteString("No sessions in range\n")
		return output.String()
	}

	output.WriteString(fmt.Sprintf("Sessions:          %d\n", sum.SessionCount))
	output.WriteString(fmt.Sprintf("Avg fill rate:     %.1f%% (%.1f of %.1f seats)\n",
		sum.AvgFillRatePct, sum.AvgCheckIns, sum.AvgCapacity))
	output.WriteString(fmt.Sprintf("Revenue:           %.2f total, %.2f per session, %.2f per seat\n",
		sum.TotalRevenue, sum.AvgRevenue, sum.RevenuePerSeat))
	output.WriteString(fmt.Sprintf("Late cancels:      %.1f%% (est. %.0f revenue lost)\n",
		sum.CancellationRatePct, sum.RevenueLostToCancellation))
	output.WriteString(fmt.Sprintf("Waitlist rate:     %.1f%%\n", sum.WaitlistRatePct))

	trendLine := fmt.Sprintf("Trend:             %s", sum.TrendDirection)
	if sum.TrendPct != 0 {
		trendLine += fmt.Sprintf(" (%+.1f%%)", sum.TrendPct)
	}
	switch sum.TrendDirection {
	case metrics.TrendGrowing:
		trendLine = color.New(color.FgGreen).Sprint(trendLine)
	case metrics.TrendDeclining:
		trendLine = color.New(color.FgRed).Sprint(trendLine)
	case metrics.TrendStable:
		// Leave uncolored.
	}
	output.WriteString(trendLine + "\n")

	if sum.BestSessionID != "" {
		output.WriteString(fmt.Sprintf("Best session:      %s (%d checked in)\n", sum.BestSessionID, sum.BestCheckIns))
		output.WriteString(fmt.Sprintf("Worst session:     %s (%d checked in)\n", sum.WorstSessionID, sum.WorstCheckIns))
	}
	return output.String()
}

// priorityColor maps a suggestion priority to its display color.
func priorityColor(priority string) *color.Color {
	switch priority {
	case "high":
		return color.New(color.FgRed)
	case "medium":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}

// Insights renders headlines and suggestions, labeling the source so users
// can tell AI output from the local rule engine.
func Insights(result *insights.Insights) string {
	if result == nil {
		return ""
	}

	var output strings.Builder
	label := "rule engine"
	if result.Source == insights.SourceGemini {
		label = "Gemini"
	}
	output.WriteString(fmt.Sprintf("\n💡 Insights (%s)\n", label))
	output.WriteString(strings.Repeat("─", dividerWidth) + "\n")

	for _, headline := range result.Headlines {
		output.WriteString("• " + headline + "\n")
	}
	if len(result.Suggestions) > 0 {
		output.WriteString("\n")
	}
	for _, s := range result.Suggestions {
		tag := priorityColor(s.Priority).Sprintf("[%s]", s.Priority)
		output.WriteString(fmt.Sprintf("%s %s\n    %s\n", tag, s.Title, s.Description))
	}
	return output.String()
}
