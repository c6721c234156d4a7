package service

import (
	"context"
	"errors"
	"testing"

	"github.com/scyra/scyra/internal/llm"
	"github.com/scyra/scyra/internal/research/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	response string
	err      error
}

func (p *stubProvider) Complete(_ context.Context, _ string, _ llm.CompletionOptions) (string, error) {
	return p.response, p.err
}

func (p *stubProvider) IsAvailable() bool { return true }

const validPlanJSON = `{
  "sites": ["example.com", "another.com"],
  "forums": ["r/fitness"],
  "searchTerms": ["term one", "term two"],
  "trendIndicators": ["rising mentions"]
}`

func TestDecodeStrictAcceptsFencedJSON(t *testing.T) {
	var plan domain.SearchPlan
	err := decodeStrict("```json\n"+validPlanJSON+"\n```", &plan)
	require.NoError(t, err)
	require.Equal(t, []string{"example.com", "another.com"}, plan.Sites)
}

func TestDecodeStrictRejectsTrailingContent(t *testing.T) {
	var plan domain.SearchPlan
	err := decodeStrict(validPlanJSON+"\nHope this helps!", &plan)
	require.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

func TestDecodeStrictRejectsProseWrappedJSON(t *testing.T) {
	// A brace-grabbing regex would recover this; strict decode must not.
	var plan domain.SearchPlan
	err := decodeStrict("Here is the plan: "+validPlanJSON, &plan)
	require.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

func TestDecodeStrictRejectsEmptyResponse(t *testing.T) {
	var plan domain.SearchPlan
	err := decodeStrict("   ", &plan)
	require.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

func TestPlannerRejectsIncompletePlan(t *testing.T) {
	planner := NewPlanner(zap.NewNop(), &stubProvider{
		response: `{"sites": [], "forums": [], "searchTerms": [], "trendIndicators": []}`,
	})

	_, err := planner.BuildPlan(context.Background(), "home fitness")
	require.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

func TestPlannerReturnsPlan(t *testing.T) {
	planner := NewPlanner(zap.NewNop(), &stubProvider{response: validPlanJSON})

	plan, err := planner.BuildPlan(context.Background(), "home fitness")
	require.NoError(t, err)
	require.Len(t, plan.SearchTerms, 2)
}

func TestSynthesizerRejectsMalformedAnalysis(t *testing.T) {
	synth := NewSynthesizer(zap.NewNop(), &stubProvider{response: "not json at all"})

	_, err := synth.Analyze(context.Background(), "home fitness", nil)
	require.True(t, errors.Is(err, domain.ErrMalformedResponse))
}

func TestSynthesizerParsesAnalysis(t *testing.T) {
	synth := NewSynthesizer(zap.NewNop(), &stubProvider{response: `{
	  "themes": [{"title": "Minimal equipment", "description": "d", "engagement": "High", "velocity": "Rising fast"}],
	  "ideas": [{"title": "30-day plan", "format": "Video", "rationale": "r"}],
	  "stats": {"sourcesAnalyzed": 99, "trendingVelocity": 8, "engagementScore": 7, "contentGaps": 3},
	  "insights": {"drivingFactor": "f", "commonQuestions": ["q"], "missingContent": ["m"]}
	}`})

	analysis, err := synth.Analyze(context.Background(), "home fitness", []domain.EvidenceItem{
		{Title: "t", URL: "https://example.com", Excerpt: "e"},
	})
	require.NoError(t, err)
	require.Len(t, analysis.Themes, 1)
	require.Equal(t, 8, analysis.Stats.TrendingVelocity)
}
