package insights

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/metrics"
	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleSessions() []session.Record {
	base := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	var sessions []session.Record
	// A struggling class: mostly empty, declining.
	for i := range 10 {
		checkedIn := 8 - i
		if checkedIn < 0 {
			checkedIn = 0
		}
		sessions = append(sessions, session.Record{
			SessionID: "s" + string(rune('a'+i)),
			Date:      base.AddDate(0, 0, i),
			Day:       "Monday",
			Time:      "18:00",
			ClassName: "Mat Pilates",
			Capacity:  20,
			CheckedIn: checkedIn,
			Booked:    checkedIn + 2,
		})
	}
	return sessions
}

func TestGenerateWithoutBackendFallsBack(t *testing.T) {
	g := New(discardLogger())
	if g.Enabled() {
		t.Fatal("generator with no key should be disabled")
	}

	result := g.Generate(context.Background(), sampleSessions())
	if result == nil {
		t.Fatal("Generate returned nil")
	}
	if result.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", result.Source, SourceFallback)
	}
	if len(result.Headlines) == 0 {
		t.Error("fallback produced no headlines")
	}
	if len(result.Suggestions) == 0 {
		t.Error("fallback produced no suggestions for a struggling schedule")
	}
}

func TestFallbackDeterministic(t *testing.T) {
	g := New(discardLogger())
	sessions := sampleSessions()

	first := g.Fallback(sessions)
	for range 3 {
		again := g.Fallback(sessions)
		if len(again.Headlines) != len(first.Headlines) || len(again.Suggestions) != len(first.Suggestions) {
			t.Fatalf("fallback not deterministic: %+v vs %+v", first, again)
		}
		for i := range first.Headlines {
			if first.Headlines[i] != again.Headlines[i] {
				t.Fatalf("headline %d differs: %q vs %q", i, first.Headlines[i], again.Headlines[i])
			}
		}
		for i := range first.Suggestions {
			if first.Suggestions[i] != again.Suggestions[i] {
				t.Fatalf("suggestion %d differs: %+v vs %+v", i, first.Suggestions[i], again.Suggestions[i])
			}
		}
	}
}

func TestFallbackEmptyInput(t *testing.T) {
	result := New(discardLogger()).Fallback(nil)
	if result.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", result.Source, SourceFallback)
	}
	if len(result.Headlines) != 1 {
		t.Errorf("Headlines = %v, want a single empty-data notice", result.Headlines)
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("Suggestions = %v, want none for empty input", result.Suggestions)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	g := New(discardLogger())
	sessions := sampleSessions()
	digest := metrics.Digest(sessions)

	first := g.buildPrompt(context.Background(), sessions, digest)
	if first == "" {
		t.Fatal("empty prompt")
	}
	for range 3 {
		if again := g.buildPrompt(context.Background(), sessions, digest); again != first {
			t.Fatal("prompt differs between runs for identical input")
		}
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"googleapi: Error 503: service unavailable", true},
		{"rate limit exceeded", true},
		{"context deadline exceeded", true},
		{"invalid API key", false},
		{"schema validation failed", false},
	}
	for _, tt := range tests {
		if got := isTransientError(errString(tt.msg)); got != tt.want {
			t.Errorf("isTransientError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
