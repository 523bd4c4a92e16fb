// Package main implements the fitpulse CLI: studio schedule analytics over
// a CSV export of class sessions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/calendar"
	"github.com/codeGROOVE-dev/fitPulse/pkg/clock"
	"github.com/codeGROOVE-dev/fitPulse/pkg/ingest"
	"github.com/codeGROOVE-dev/fitPulse/pkg/insightcache"
	"github.com/codeGROOVE-dev/fitPulse/pkg/insights"
	"github.com/codeGROOVE-dev/fitPulse/pkg/metrics"
	"github.com/codeGROOVE-dev/fitPulse/pkg/render"
	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
	"github.com/codeGROOVE-dev/fitPulse/pkg/status"
	"github.com/codeGROOVE-dev/fitPulse/pkg/week"
)

var (
	weekOf       = flag.String("week", "", "Show the week containing this date (YYYY-MM-DD, default today)")
	sundayStart  = flag.Bool("sunday-start", false, "Start the week on Sunday instead of Monday")
	startHour    = flag.Int("start-hour", 7, "First displayed hour of the day")
	endHour      = flag.Int("end-hour", 22, "First hour excluded from display")
	trainer      = flag.String("trainer", "", "Only include this trainer")
	className    = flag.String("class", "", "Only include this class")
	location     = flag.String("location", "", "Only include this location")
	referencePath = flag.String("reference", "", "JSON file with the active schedule reference table")
	geminiAPIKey = flag.String("gemini-key", "", "Gemini API key (or set GEMINI_API_KEY)")
	geminiModel  = flag.String("gemini-model", "gemini-2.5-flash-lite", "Gemini model to use (or set GEMINI_MODEL)")
	gcpProject   = flag.String("gcp-project", "", "GCP project ID for Vertex AI (or set GCP_PROJECT)")
	studioURL    = flag.String("studio-url", "", "Studio web page to include as AI prompt context")
	cacheDir     = flag.String("cache-dir", "", "Insight cache directory (or set CACHE_DIR)")
	noCache      = flag.Bool("no-cache", false, "Disable the insight cache")
	noInsights   = flag.Bool("no-insights", false, "Skip the insights block entirely")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	version      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("fitPulse CLI v1.2.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <sessions.csv>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *geminiAPIKey == "" {
		*geminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if *geminiModel == "gemini-2.5-flash-lite" && os.Getenv("GEMINI_MODEL") != "" {
		*geminiModel = os.Getenv("GEMINI_MODEL")
	}
	if *gcpProject == "" {
		*gcpProject = os.Getenv("GCP_PROJECT")
	}
	if *cacheDir == "" {
		*cacheDir = os.Getenv("CACHE_DIR")
	}

	if err := run(logger, args[0]); err != nil {
		logger.Error("fitpulse failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, csvPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening sessions file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Debug("failed to close sessions file", "error", closeErr)
		}
	}()

	records, skips, err := ingest.New(logger).Read(file)
	if err != nil {
		return err
	}
	if skips.Total() > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  Skipped %d unusable rows (%d bad dates, %d missing dates, %d missing class names)\n",
			skips.Total(), skips.BadDate, skips.MissingDate, skips.MissingClass)
	}

	records = applyFilters(records)
	if len(records) == 0 {
		fmt.Println("No sessions match the given filters.")
		return nil
	}

	records = classifyAll(logger, records)

	ref := time.Now()
	if *weekOf != "" {
		parsed, err := time.Parse("2006-01-02", *weekOf)
		if err != nil {
			return fmt.Errorf("invalid --week date %q: %w", *weekOf, err)
		}
		ref = parsed
	}
	start := week.StartMonday
	if *sundayStart {
		start = week.StartSunday
	}
	days := week.Days(ref, start)
	window := clock.Window{StartHour: *startHour, EndHour: *endHour}

	placed, placeSkips := calendar.Place(records, days, window)
	logger.Debug("placement complete",
		"placed", len(placed),
		"bad_time", placeSkips.UnparseableTime,
		"outside_week", placeSkips.OutsideWeek,
		"outside_window", placeSkips.OutsideWindow)

	fmt.Print(render.Week(placed, days))
	for day := range days {
		fmt.Print(render.Conflicts(calendar.ConflictsForDay(placed, day)))
	}

	fmt.Print(render.Summary("Performance (all sessions)", metrics.Aggregate(records)))
	printGroupHighlights(records)

	if !*noInsights {
		fmt.Print(render.Insights(generateInsights(ctx, logger, records)))
	}
	return nil
}

func applyFilters(records []session.Record) []session.Record {
	if *trainer == "" && *className == "" && *location == "" {
		return records
	}
	var out []session.Record
	for _, r := range records {
		if *trainer != "" && !strings.EqualFold(r.TrainerName, *trainer) {
			continue
		}
		if *className != "" && !strings.EqualFold(r.ClassName, *className) {
			continue
		}
		if *location != "" && !strings.EqualFold(r.Location, *location) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// classifyAll tags every record with its active status, using the reference
// table when one was supplied.
func classifyAll(logger *slog.Logger, records []session.Record) []session.Record {
	var ref session.Reference
	if *referencePath != "" {
		data, err := os.ReadFile(*referencePath)
		if err != nil {
			logger.Warn("could not read reference table, using recency fallback", "error", err)
		} else if err := json.Unmarshal(data, &ref); err != nil {
			logger.Warn("could not parse reference table, using recency fallback", "error", err)
			ref = nil
		}
	}

	now := time.Now()
	for i := range records {
		records[i].Status = status.Classify(records[i], ref, now)
	}
	return records
}

// printGroupHighlights shows the strongest and weakest class groups.
func printGroupHighlights(records []session.Record) {
	byClass := metrics.AggregateBy(records, metrics.ByClass)
	for name, sum := range byClass {
		for _, rec := range metrics.Recommend(name, sum) {
			if rec.Priority == metrics.PriorityHigh {
				fmt.Printf("  ▸ %s: %s\n", name, rec.Title)
			}
		}
	}
}

func generateInsights(ctx context.Context, logger *slog.Logger, records []session.Record) *insights.Insights {
	opts := []insights.Option{
		insights.WithAPIKey(*geminiAPIKey),
		insights.WithModel(*geminiModel),
		insights.WithGCPProject(*gcpProject),
	}
	if *studioURL != "" {
		opts = append(opts, insights.WithStudioURL(*studioURL))
	}

	if !*noCache {
		dir := *cacheDir
		if dir == "" {
			if userCacheDir, err := os.UserCacheDir(); err == nil {
				dir = filepath.Join(userCacheDir, "fitpulse")
			}
		}
		if dir != "" {
			cache, err := insightcache.New(ctx, dir, 14*24*time.Hour, logger)
			if err != nil {
				logger.Warn("insight cache initialization failed", "error", err)
			} else {
				defer func() {
					if err := cache.Close(); err != nil {
						logger.Error("failed to close insight cache", "error", err)
					}
				}()
				opts = append(opts, insights.WithCache(cache))
			}
		}
	}

	return insights.New(logger, opts...).Generate(ctx, records)
}
