package insights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/codeGROOVE-dev/fitPulse/pkg/metrics"
	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
	"github.com/codeGROOVE-dev/retry"
)

// Caps applied when embedding data in the prompt.
const (
	maxPromptClasses   = 12
	maxStudioPageBytes = 64 * 1024
)

// buildPrompt assembles the Gemini prompt from the digest, per-class
// summaries, and optional studio page context. The prompt is deterministic
// for identical input so that caching on it is effective.
func (g *Generator) buildPrompt(ctx context.Context, sessions []session.Record, digest session.Digest) string {
	var b strings.Builder

	b.WriteString(`You are an analyst for a fitness-studio chain. Based on the schedule
performance data below, produce short actionable insights for the studio
manager. Focus on fill rate, cancellation behavior, attendance trends, and
schedule gaps. Never invent numbers that are not in the data.

OVERALL:
`)
	fmt.Fprintf(&b, "- total sessions: %d\n", digest.TotalSessions)
	fmt.Fprintf(&b, "- average fill rate: %.1f%%\n", digest.AvgFillRate)
	fmt.Fprintf(&b, "- average class size: %.1f\n", digest.AvgClassSize)
	fmt.Fprintf(&b, "- average revenue per session: %.2f\n", digest.AvgRevenue)
	fmt.Fprintf(&b, "- late cancellation rate: %.1f%%\n", digest.CancelRate)
	fmt.Fprintf(&b, "- top classes by attendance: %s\n", strings.Join(digest.TopClasses, ", "))
	fmt.Fprintf(&b, "- weakest classes by attendance: %s\n", strings.Join(digest.LowClasses, ", "))
	fmt.Fprintf(&b, "- peak days: %s\n", strings.Join(digest.PeakDays, ", "))
	fmt.Fprintf(&b, "- peak times: %s\n", strings.Join(digest.PeakTimes, ", "))

	b.WriteString("\nPER-CLASS PERFORMANCE:\n")
	byClass := metrics.AggregateBy(sessions, metrics.ByClass)
	names := make([]string, 0, len(byClass))
	for name := range byClass {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > maxPromptClasses {
		names = names[:maxPromptClasses]
	}
	for _, name := range names {
		sum := byClass[name]
		fmt.Fprintf(&b, "- %s: %d sessions, %.1f%% fill, %.1f%% cancel, trend %s %.1f%%\n",
			name, sum.SessionCount, sum.AvgFillRatePct, sum.CancellationRatePct,
			sum.TrendDirection, sum.TrendPct)
	}

	if g.studioURL != "" {
		if pageContext := g.fetchStudioContext(ctx); pageContext != "" {
			b.WriteString("\nSTUDIO WEBSITE (for context on branding and current offerings):\n")
			b.WriteString(pageContext)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRespond with JSON only, matching the provided schema.\n")
	return b.String()
}

// fetchStudioContext downloads the configured studio page and converts it
// to markdown for the prompt. Failures degrade to an empty string; the page
// is enrichment, not required input.
func (g *Generator) fetchStudioContext(ctx context.Context) string {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.studioURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := g.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					g.logger.Debug("failed to close studio page body", "error", closeErr)
				}
			}()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("studio page returned status %d", resp.StatusCode)
			}
			body, err = io.ReadAll(io.LimitReader(resp.Body, maxStudioPageBytes))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(50*time.Millisecond),
	)
	if err != nil {
		g.logger.Debug("studio page fetch failed", "url", g.studioURL, "error", err)
		return ""
	}

	markdown, err := md.ConvertString(string(body))
	if err != nil {
		g.logger.Debug("studio page markdown conversion failed", "error", err)
		return ""
	}
	// Keep the prompt bounded even after conversion.
	if len(markdown) > maxStudioPageBytes/8 {
		markdown = markdown[:maxStudioPageBytes/8]
	}
	return strings.TrimSpace(markdown)
}
