// Package domain defines the research planning and synthesis contracts
// used by the trend pipeline.
package domain

import (
	"context"
	"errors"
)

var (
	// ErrMalformedResponse means the model reply could not be decoded
	// into the expected document. Never retried.
	ErrMalformedResponse = errors.New("malformed model response")
)

// SearchPlan is the research strategy produced by the planner.
type SearchPlan struct {
	Sites           []string `json:"sites"`
	Forums          []string `json:"forums"`
	SearchTerms     []string `json:"searchTerms"`
	TrendIndicators []string `json:"trendIndicators"`
}

// Theme is a trending topic surfaced by the synthesizer.
type Theme struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Engagement  string   `json:"engagement"`
	Velocity    string   `json:"velocity"`
	Sources     []string `json:"sources,omitempty"`
}

// Idea is an actionable content suggestion.
type Idea struct {
	Title     string `json:"title"`
	Format    string `json:"format"`
	Rationale string `json:"rationale"`
}

// Stats carries the synthesizer's numeric assessment.
type Stats struct {
	SourcesAnalyzed  int `json:"sourcesAnalyzed"`
	TrendingVelocity int `json:"trendingVelocity"`
	EngagementScore  int `json:"engagementScore"`
	ContentGaps      int `json:"contentGaps"`
}

// Insights summarizes conversation drivers and missing content.
type Insights struct {
	DrivingFactor   string   `json:"drivingFactor"`
	CommonQuestions []string `json:"commonQuestions"`
	MissingContent  []string `json:"missingContent"`
}

// Analysis is the full synthesizer output.
type Analysis struct {
	Themes   []Theme  `json:"themes"`
	Ideas    []Idea   `json:"ideas"`
	Stats    Stats    `json:"stats"`
	Insights Insights `json:"insights"`
}

// EvidenceItem is one gathered source passed to the synthesizer.
type EvidenceItem struct {
	Title   string
	URL     string
	Excerpt string
}

// Planner builds a research plan for a niche.
type Planner interface {
	BuildPlan(ctx context.Context, niche string) (*SearchPlan, error)
}

// Synthesizer turns gathered evidence into an analysis and produces a
// standalone niche summary.
type Synthesizer interface {
	Analyze(ctx context.Context, niche string, evidence []EvidenceItem) (*Analysis, error)
	Summarize(ctx context.Context, niche string) (string, error)
}
