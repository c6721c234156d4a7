package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/scyra/scyra/internal/llm"
	"github.com/scyra/scyra/internal/research/domain"
	"go.uber.org/zap"
)

const analysisPromptTemplate = `You are an expert Trend Analyst AI specializing in identifying emerging content opportunities.

NICHE: %q

Analyze the following web content and identify trending themes, discussions, and content opportunities:

%s

Based on this data, provide:

1. **5 Trending Themes** - Hot topics gaining traction
   For each: title, description, engagement level (High/Medium/Low), velocity (Rising fast/Steady/Slow)

2. **15 Content Ideas** - Specific, actionable content ideas
   For each: title, format (Blog/Video/Thread/Reel/Carousel), why it works

3. **Statistics**:
   - Total sources analyzed
   - Trending velocity score (1-10)
   - Engagement potential
   - Content gaps identified

4. **Key Insights**:
   - What's driving conversations?
   - What are people asking?
   - What content is missing?

Format as JSON:
{
  "themes": [
    {
      "title": "Theme name",
      "description": "Brief description",
      "engagement": "High/Medium/Low",
      "velocity": "Rising fast/Steady/Slow",
      "sources": ["source1", "source2"]
    }
  ],
  "ideas": [
    {
      "title": "Content idea title",
      "format": "Blog/Video/Thread/Reel/Carousel",
      "rationale": "Why this works"
    }
  ],
  "stats": {
    "sourcesAnalyzed": number,
    "trendingVelocity": number,
    "engagementScore": number,
    "contentGaps": number
  },
  "insights": {
    "drivingFactor": "What's driving conversations",
    "commonQuestions": ["question1", "question2"],
    "missingContent": ["gap1", "gap2"]
  }
}`

const summaryPromptTemplate = `For the niche %q, generate a brief trend analysis summary (2-3 sentences) explaining what's currently happening in this space and why it's trending.`

type Synthesizer struct {
	log      *zap.Logger
	provider llm.Provider
}

func NewSynthesizer(log *zap.Logger, provider llm.Provider) domain.Synthesizer {
	return &Synthesizer{
		log:      log.Named("research.synthesizer"),
		provider: provider,
	}
}

func (s *Synthesizer) Analyze(ctx context.Context, niche string, evidence []domain.EvidenceItem) (*domain.Analysis, error) {
	prompt := fmt.Sprintf(analysisPromptTemplate, niche, formatEvidence(evidence))

	response, err := s.provider.Complete(ctx, prompt, llm.CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   8192,
		Format:      "json",
	})
	if err != nil {
		return nil, fmt.Errorf("analyze trends: %w", err)
	}

	var analysis domain.Analysis
	if err := decodeStrict(response, &analysis); err != nil {
		return nil, err
	}
	if len(analysis.Themes) == 0 || len(analysis.Ideas) == 0 {
		return nil, fmt.Errorf("%w: incomplete analysis", domain.ErrMalformedResponse)
	}
	return &analysis, nil
}

func (s *Synthesizer) Summarize(ctx context.Context, niche string) (string, error) {
	response, err := s.provider.Complete(ctx, fmt.Sprintf(summaryPromptTemplate, niche), llm.CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   512,
		Format:      "text",
	})
	if err != nil {
		return "", fmt.Errorf("summarize niche: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// formatEvidence inlines every gathered source into the prompt in
// discovery order. No chunking; the whole corpus travels in one call.
func formatEvidence(evidence []domain.EvidenceItem) string {
	blocks := make([]string, 0, len(evidence))
	for i, item := range evidence {
		excerpt := item.Excerpt
		if strings.TrimSpace(excerpt) == "" {
			excerpt = "No content available"
		}
		blocks = append(blocks, fmt.Sprintf("Source %d: %s\nURL: %s\nContent: %s", i+1, item.Title, item.URL, excerpt))
	}
	return strings.Join(blocks, "\n---\n")
}
