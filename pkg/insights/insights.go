// Package insights generates schedule recommendations from session data
// using Gemini, degrading to the deterministic rule engine when AI is
// disabled or the call fails. An AI failure never propagates to the caller:
// the dashboard always has something to show.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/fitPulse/pkg/insightcache"
	"github.com/codeGROOVE-dev/fitPulse/pkg/metrics"
	"github.com/codeGROOVE-dev/fitPulse/pkg/session"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/genai"
)

// Source records which path produced the insights.
type Source string

// Insight sources.
const (
	SourceGemini   Source = "gemini"
	SourceFallback Source = "rules"
)

// Suggestion is one AI- or rule-derived scheduling suggestion.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // "high", "medium", or "low"
}

// Insights is the structured result handed to the view layer. The view
// treats the text as opaque display data.
type Insights struct {
	Source      Source       `json:"source"`
	Headlines   []string     `json:"headlines"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Generator produces insights for uploaded schedule data.
type Generator struct {
	logger     *slog.Logger
	cache      *insightcache.Cache
	httpClient *http.Client
	apiKey     string
	model      string
	gcpProject string
	studioURL  string
}

// Option configures a Generator.
type Option func(*Generator)

// WithAPIKey sets the Gemini API key. Without one (and without a GCP
// project) every request takes the fallback path.
func WithAPIKey(key string) Option {
	return func(g *Generator) { g.apiKey = key }
}

// WithModel overrides the default Gemini model.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithGCPProject routes requests through Vertex AI with ADC instead of an
// API key.
func WithGCPProject(project string) Option {
	return func(g *Generator) { g.gcpProject = project }
}

// WithCache attaches a response cache keyed by model and prompt.
func WithCache(cache *insightcache.Cache) Option {
	return func(g *Generator) { g.cache = cache }
}

// WithStudioURL adds a studio web page (public schedule, pricing page) as
// prompt context. The page is fetched and converted to markdown.
func WithStudioURL(url string) Option {
	return func(g *Generator) { g.studioURL = url }
}

// WithHTTPClient overrides the client used for studio page fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) { g.httpClient = client }
}

// New creates a Generator.
func New(logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		logger: logger,
		model:  "gemini-2.5-flash-lite",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether an AI backend is configured.
func (g *Generator) Enabled() bool {
	return g.apiKey != "" || g.gcpProject != ""
}

// Generate returns insights for the sessions, never an error. When the AI
// path is unavailable or fails for any reason (network, quota, malformed
// response), it logs the failure and returns the deterministic rule-based
// fallback instead.
func (g *Generator) Generate(ctx context.Context, sessions []session.Record) *Insights {
	digest := metrics.Digest(sessions)

	if !g.Enabled() {
		g.logger.Debug("AI insights disabled, using rule-based fallback")
		return g.Fallback(sessions)
	}

	result, err := g.generateWithGemini(ctx, sessions, digest)
	if err != nil {
		g.logger.Warn("Gemini insight generation failed, using fallback", "error", err)
		return g.Fallback(sessions)
	}
	return result
}

// Fallback derives insights purely from the rule engine. Deterministic:
// identical sessions yield identical output.
func (g *Generator) Fallback(sessions []session.Record) *Insights {
	overall := metrics.Aggregate(sessions)
	digest := metrics.Digest(sessions)

	out := &Insights{Source: SourceFallback}
	if overall.SessionCount == 0 {
		out.Headlines = []string{"No session data uploaded yet."}
		return out
	}

	out.Headlines = append(out.Headlines, fmt.Sprintf(
		"%d sessions analyzed: %.1f%% average fill rate, %.1f attendees per class.",
		overall.SessionCount, overall.AvgFillRatePct, overall.AvgCheckIns))
	if len(digest.TopClasses) > 0 {
		out.Headlines = append(out.Headlines, "Strongest classes: "+strings.Join(digest.TopClasses, ", ")+".")
	}
	if len(digest.LowClasses) > 0 {
		out.Headlines = append(out.Headlines, "Weakest classes: "+strings.Join(digest.LowClasses, ", ")+".")
	}
	if len(digest.PeakDays) > 0 {
		out.Headlines = append(out.Headlines, "Busiest days: "+strings.Join(digest.PeakDays, ", ")+".")
	}

	for _, rec := range metrics.Recommend("the schedule", overall) {
		out.Suggestions = append(out.Suggestions, Suggestion{
			Title:       rec.Title,
			Description: rec.Description,
			Priority:    string(rec.Priority),
		})
	}
	// Per-class rules surface problems the overall summary averages away.
	for _, class := range digest.LowClasses {
		classSessions := filterByClass(sessions, class)
		for _, rec := range metrics.Recommend(class, metrics.Aggregate(classSessions)) {
			if rec.Priority == metrics.PriorityHigh {
				out.Suggestions = append(out.Suggestions, Suggestion{
					Title:       rec.Title,
					Description: rec.Description,
					Priority:    string(rec.Priority),
				})
			}
		}
	}
	return out
}

func filterByClass(sessions []session.Record, class string) []session.Record {
	var out []session.Record
	for _, s := range sessions {
		if s.ClassName == class {
			out = append(out, s)
		}
	}
	return out
}

// generateWithGemini runs the full AI path: prompt, cache check, API call
// with retries, response validation, cache store.
func (g *Generator) generateWithGemini(ctx context.Context, sessions []session.Record, digest session.Digest) (*Insights, error) {
	prompt := g.buildPrompt(ctx, sessions, digest)

	if g.cache != nil {
		if data, found := g.cache.Get(g.model, prompt); found {
			var cached Insights
			if err := json.Unmarshal(data, &cached); err == nil && len(cached.Suggestions) > 0 {
				g.logger.Debug("insight cache hit", "suggestions", len(cached.Suggestions))
				return &cached, nil
			}
			g.logger.Debug("cached insight response invalid, fetching fresh")
		}
	}

	client, err := g.createClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	temperature := float32(0.2)
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  2000,
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}

	var resp *genai.GenerateContentResponse
	err = retry.Do(
		func() error {
			var callErr error
			resp, callErr = client.Models.GenerateContent(ctx, g.model, contents, genConfig)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Debug("retrying Gemini call", "attempt", n+1, "error", err)
		}),
		retry.RetryIf(isTransientError),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}

	result, err := parseResponse(resp)
	if err != nil {
		return nil, err
	}
	result.Source = SourceGemini

	if g.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			g.cache.Set(g.model, prompt, data)
		}
	}
	return result, nil
}

func (g *Generator) createClient(ctx context.Context) (*genai.Client, error) {
	var config *genai.ClientConfig
	if g.apiKey != "" {
		config = &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  g.apiKey,
		}
	} else {
		config = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  g.gcpProject,
			Location: "us-central1",
		}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}

// responseSchema constrains Gemini to the structure the dashboard renders.
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"headlines": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Two to four short observations about the studio's schedule performance",
			},
			"suggestions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title": {
							Type:        genai.TypeString,
							Description: "Short imperative title for the suggestion",
						},
						"description": {
							Type:        genai.TypeString,
							Description: "One or two sentences explaining the suggestion and the data behind it",
						},
						"priority": {
							Type:        genai.TypeString,
							Enum:        []string{"high", "medium", "low"},
							Description: "Urgency of acting on this suggestion",
						},
					},
					PropertyOrdering: []string{"title", "description", "priority"},
					Required:         []string{"title", "description", "priority"},
				},
				Description: "Concrete scheduling, capacity, or pricing actions",
			},
		},
		PropertyOrdering: []string{"headlines", "suggestions"},
		Required:         []string{"headlines", "suggestions"},
	}
}

func parseResponse(resp *genai.GenerateContentResponse) (*Insights, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no content in Gemini response")
	}
	text := candidate.Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	var result Insights
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parsing Gemini JSON response: %w", err)
	}
	if len(result.Headlines) == 0 && len(result.Suggestions) == 0 {
		return nil, fmt.Errorf("gemini response carried no insights")
	}
	return &result, nil
}

func isTransientError(err error) bool {
	errStr := strings.ToLower(err.Error())
	transient := []string{
		"rate limit", "quota", "timeout", "deadline", "unavailable",
		"internal server error", "502", "503", "504",
	}
	for _, indicator := range transient {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
