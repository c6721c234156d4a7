package service

import (
	"context"
	"fmt"

	"github.com/scyra/scyra/internal/llm"
	"github.com/scyra/scyra/internal/research/domain"
	"go.uber.org/zap"
)

const plannerPromptTemplate = `You are a research analyst specializing in content trend discovery.

For the niche/topic: %q

Generate a comprehensive research plan:

1. **Top Popular Sites** (5-7 sites where this niche is actively discussed):
   List authoritative blogs, news sites, and platforms

2. **Reddit Communities & Forums** (5-7 communities):
   List specific subreddits and forums where people discuss this

3. **Search Terms** (10-15 specific search queries):
   Generate trending search terms, questions, and topics people are searching for
   Include: how-to queries, comparisons, trending topics, common problems

4. **Trend Indicators**:
   What signals would indicate something is trending in this space?

Format your response as JSON:
{
  "sites": ["site1.com", "site2.com", ...],
  "forums": ["r/subreddit", "forum-name", ...],
  "searchTerms": ["term 1", "term 2", ...],
  "trendIndicators": ["indicator 1", "indicator 2", ...]
}`

type Planner struct {
	log      *zap.Logger
	provider llm.Provider
}

func NewPlanner(log *zap.Logger, provider llm.Provider) domain.Planner {
	return &Planner{
		log:      log.Named("research.planner"),
		provider: provider,
	}
}

func (p *Planner) BuildPlan(ctx context.Context, niche string) (*domain.SearchPlan, error) {
	response, err := p.provider.Complete(ctx, fmt.Sprintf(plannerPromptTemplate, niche), llm.CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   2048,
		Format:      "json",
	})
	if err != nil {
		return nil, fmt.Errorf("build search plan: %w", err)
	}

	var plan domain.SearchPlan
	if err := decodeStrict(response, &plan); err != nil {
		return nil, err
	}
	if len(plan.SearchTerms) == 0 || len(plan.Sites) == 0 || len(plan.Forums) == 0 {
		return nil, fmt.Errorf("%w: incomplete search plan", domain.ErrMalformedResponse)
	}

	p.log.Debug("search plan built",
		zap.String("niche", niche),
		zap.Int("sites", len(plan.Sites)),
		zap.Int("forums", len(plan.Forums)),
		zap.Int("terms", len(plan.SearchTerms)),
	)
	return &plan, nil
}
