package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scyra/scyra/internal/config"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	"github.com/scyra/scyra/internal/search/domain"
	"go.uber.org/zap"
)

type exaSearchRequest struct {
	Query      string       `json:"query"`
	Type       string       `json:"type"`
	NumResults int          `json:"numResults"`
	Contents   *exaContents `json:"contents,omitempty"`
}

type exaContents struct {
	Highlights exaHighlights `json:"highlights"`
}

type exaHighlights struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaSearchResponse struct {
	Results []struct {
		Title      string   `json:"title"`
		URL        string   `json:"url"`
		Text       string   `json:"text"`
		Highlights []string `json:"highlights"`
	} `json:"results"`
}

// ExaClient searches the web through the Exa REST API.
type ExaClient struct {
	log     *zap.Logger
	apiKey  string
	baseURL string
	client  *http.Client
	metrics *obsmetrics.Metrics
}

func NewExaClient(log *zap.Logger, cfg config.Config, metrics *obsmetrics.Metrics) domain.Service {
	return &ExaClient{
		log:     log.Named("search.exa"),
		apiKey:  cfg.Exa.APIKey,
		baseURL: strings.TrimRight(cfg.Exa.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Exa.Timeout},
		metrics: metrics,
	}
}

func (c *ExaClient) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Evidence, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}
	if c.apiKey == "" {
		return nil, domain.ErrUnavailable
	}

	payload := exaSearchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: req.NumResults,
	}
	if req.ExcerptChars > 0 {
		payload.Contents = &exaContents{
			Highlights: exaHighlights{MaxCharacters: req.ExcerptChars},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	c.recordCall(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("exa request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("exa response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("exa status %d", resp.StatusCode)
	}

	var decoded exaSearchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("exa response: %w", err)
	}

	evidence := make([]domain.Evidence, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		evidence = append(evidence, domain.Evidence{
			Title:   result.Title,
			URL:     result.URL,
			Excerpt: excerptOf(result.Text, result.Highlights),
		})
	}
	return evidence, nil
}

func (c *ExaClient) recordCall(ctx context.Context, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamCall(ctx, "exa", "search", time.Since(start), err)
}

// excerptOf prefers full text, then the joined highlights.
func excerptOf(text string, highlights []string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	return strings.Join(highlights, " ")
}
