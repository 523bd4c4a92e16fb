// Package main implements the fitpulse dashboard server: CSV upload plus
// JSON endpoints for the weekly calendar, conflicts, summaries, and AI
// insights. Uploaded data lives only in memory and expires with its token.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "embed"

	"github.com/codeGROOVE-dev/fitPulse/pkg/calendar"
	"github.com/codeGROOVE-dev/fitPulse/pkg/clock"
	"github.com/codeGROOVE-dev/fitPulse/pkg/ingest"
	"github.com/codeGROOVE-dev/fitPulse/pkg/insightcache"
	"github.com/codeGROOVE-dev/fitPulse/pkg/insights"
	"github.com/codeGROOVE-dev/fitPulse/pkg/metrics"
	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
	"github.com/codeGROOVE-dev/fitPulse/pkg/status"
	"github.com/codeGROOVE-dev/fitPulse/pkg/week"
	"github.com/maypok86/otter"
)

//go:embed templates/home.html
var homeTemplate string

var (
	port         = flag.String("port", "8080", "Port for web server")
	geminiAPIKey = flag.String("gemini-key", "", "Gemini API key (or set GEMINI_API_KEY)")
	geminiModel  = flag.String("gemini-model", "gemini-2.5-flash-lite", "Gemini model to use")
	gcpProject   = flag.String("gcp-project", "", "GCP project ID (or set GCP_PROJECT)")
	studioURL    = flag.String("studio-url", "", "Studio web page for AI prompt context")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	version      = flag.Bool("version", false, "Show version")
)

// maxUploadBytes caps CSV uploads at 10 MB.
const maxUploadBytes = 10 << 20

type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var valid []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	// Rate limit: 30 requests per minute per IP
	if len(valid) >= 30 {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("fitPulse Server v1.2.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *geminiAPIKey == "" {
		*geminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if *gcpProject == "" {
		*gcpProject = os.Getenv("GCP_PROJECT")
	}

	logger.Info("Server configuration",
		"port", *port,
		"verbose", *verbose,
		"gemini_model", *geminiModel,
		"has_gemini_key", *geminiAPIKey != "",
		"has_gcp_project", *gcpProject != "")

	// Uploads are transient: they expire with their token, never hit disk.
	uploads, err := otter.MustBuilder[string, []session.Record](1_000).
		WithTTL(12 * time.Hour).
		Build()
	if err != nil {
		logger.Error("Failed to build upload store", "error", err)
		return
	}

	insightCache, err := insightcache.NewMemoryOnly(12*time.Hour, logger)
	if err != nil {
		logger.Warn("insight cache initialization failed", "error", err)
		insightCache = nil
	}
	genOpts := []insights.Option{
		insights.WithAPIKey(*geminiAPIKey),
		insights.WithModel(*geminiModel),
		insights.WithGCPProject(*gcpProject),
	}
	if insightCache != nil {
		genOpts = append(genOpts, insights.WithCache(insightCache))
	}
	if *studioURL != "" {
		genOpts = append(genOpts, insights.WithStudioURL(*studioURL))
	}

	srv := &server{
		uploads:   uploads,
		generator: insights.New(logger, genOpts...),
		limiter:   newRateLimiter(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleHome)
	mux.HandleFunc("POST /api/v1/upload", srv.handleUpload)
	mux.HandleFunc("GET /api/v1/week", srv.handleWeek)
	mux.HandleFunc("GET /api/v1/conflicts", srv.handleConflicts)
	mux.HandleFunc("GET /api/v1/summary", srv.handleSummary)
	mux.HandleFunc("GET /api/v1/insights", srv.handleInsights)

	httpSrv := &http.Server{
		Addr:              ":" + *port,
		Handler:           srv.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", *port)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	if insightCache != nil {
		if err := insightCache.Close(); err != nil {
			logger.Error("Failed to close insight cache", "error", err)
		}
	}
	logger.Info("Server stopped")
}

type server struct {
	uploads   otter.Cache[string, []session.Record]
	generator *insights.Generator
	limiter   *rateLimiter
	logger    *slog.Logger
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: Request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		clientIP := strings.Split(r.RemoteAddr, ":")[0]
		if strings.HasPrefix(r.URL.Path, "/api/") && !s.limiter.allow(clientIP) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		}

		handler.ServeHTTP(w, r)
	})
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	tmpl, err := template.New("home").Parse(homeTemplate)
	if err != nil {
		s.logger.Error("Failed to parse home template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, map[string]any{"AIEnabled": s.generator.Enabled()}); err != nil {
		s.logger.Error("Failed to render home template", "error", err)
	}
}

// handleUpload ingests a CSV body (raw or multipart "file" field), stores
// the records under a fresh token, and reports skip counts.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file field", http.StatusBadRequest)
			return
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				s.logger.Debug("failed to close upload", "error", closeErr)
			}
		}()
		src = file
	}

	records, skips, err := ingest.New(s.logger).Read(src)
	if err != nil {
		s.logger.Warn("CSV ingestion failed", "error", err)
		http.Error(w, "Could not parse CSV: "+err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	for i := range records {
		records[i].Status = status.Classify(records[i], nil, now)
	}

	token := newToken()
	s.uploads.Set(token, records)
	s.logger.Info("upload stored", "token", token, "records", len(records), "skipped", skips.Total())

	s.writeJSON(w, map[string]any{
		"token":   token,
		"records": len(records),
		"skipped": skips,
	})
}

// sessionsFor resolves the upload token from the query string. A false
// return means the response has already been written.
func (s *server) sessionsFor(w http.ResponseWriter, r *http.Request) ([]session.Record, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token parameter", http.StatusBadRequest)
		return nil, false
	}
	records, found := s.uploads.Get(token)
	if !found {
		http.Error(w, "Unknown or expired token", http.StatusNotFound)
		return nil, false
	}
	return records, true
}

// weekFor parses the optional date and start-day parameters.
func weekFor(r *http.Request) ([7]time.Time, error) {
	ref := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return [7]time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		ref = parsed
	}
	start := week.StartMonday
	if r.URL.Query().Get("start") == "sunday" {
		start = week.StartSunday
	}
	return week.Days(ref, start), nil
}

func (s *server) handleWeek(w http.ResponseWriter, r *http.Request) {
	records, ok := s.sessionsFor(w, r)
	if !ok {
		return
	}
	days, err := weekFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	placed, skips := calendar.Place(records, days, clock.DefaultWindow)
	type placementJSON struct {
		Session          session.Record `json:"session"`
		DayIndex         int            `json:"day_index"`
		StartMinutes     int            `json:"start_minutes"`
		DurationMinutes  int            `json:"duration_minutes"`
		OverlapPosition  int            `json:"overlap_position"`
		OverlapGroupSize int            `json:"overlap_group_size"`
	}
	out := make([]placementJSON, 0, len(placed))
	for _, p := range placed {
		out = append(out, placementJSON{
			Session:          p.Record,
			DayIndex:         p.DayIndex,
			StartMinutes:     p.StartMinutes,
			DurationMinutes:  p.DurationMinutes,
			OverlapPosition:  p.OverlapPosition,
			OverlapGroupSize: p.OverlapGroupSize,
		})
	}

	dates := make([]string, 7)
	for i, d := range days {
		dates[i] = d.Format("2006-01-02")
	}
	s.writeJSON(w, map[string]any{
		"days":    dates,
		"placed":  out,
		"skipped": skips,
	})
}

func (s *server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	records, ok := s.sessionsFor(w, r)
	if !ok {
		return
	}
	days, err := weekFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	placed, _ := calendar.Place(records, days, clock.DefaultWindow)
	type conflictJSON struct {
		Trainer string `json:"trainer"`
		Day     string `json:"day"`
		Time    string `json:"time"`
		Count   int    `json:"count"`
	}
	byDay := make(map[string][]conflictJSON)
	for dayIdx := range days {
		for key, count := range calendar.ConflictsForDay(placed, dayIdx) {
			date := days[dayIdx].Format("2006-01-02")
			byDay[date] = append(byDay[date], conflictJSON{
				Trainer: key.Trainer,
				Day:     key.Day,
				Time:    key.Time,
				Count:   count,
			})
		}
	}
	s.writeJSON(w, map[string]any{"conflicts": byDay})
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, ok := s.sessionsFor(w, r)
	if !ok {
		return
	}

	switch by := r.URL.Query().Get("by"); by {
	case "", "all":
		s.writeJSON(w, metrics.Aggregate(records))
	case "class":
		s.writeJSON(w, metrics.AggregateBy(records, metrics.ByClass))
	case "trainer":
		s.writeJSON(w, metrics.AggregateBy(records, metrics.ByTrainer))
	case "slot":
		s.writeJSON(w, metrics.AggregateBy(records, metrics.BySlot))
	default:
		http.Error(w, "Unknown grouping: "+by, http.StatusBadRequest)
	}
}

func (s *server) handleInsights(w http.ResponseWriter, r *http.Request) {
	records, ok := s.sessionsFor(w, r)
	if !ok {
		return
	}
	// Generate never fails: AI errors fall back to the rule engine.
	s.writeJSON(w, s.generator.Generate(r.Context(), records))
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

func newToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the platform entropy source is broken.
		return fmt.Sprintf("t-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
