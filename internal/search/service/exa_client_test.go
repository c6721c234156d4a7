package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scyra/scyra/internal/config"
	"github.com/scyra/scyra/internal/search/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func exaTestConfig(baseURL string) config.Config {
	cfg := config.Config{}
	cfg.Exa.APIKey = "exa-test-key"
	cfg.Exa.BaseURL = baseURL
	cfg.Exa.Timeout = 5 * time.Second
	return cfg
}

func TestExaSearchSendsAuthAndContentOptions(t *testing.T) {
	var captured exaSearchRequest
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"First","url":"https://a.example.com","text":"full text"},
			{"title":"Second","url":"https://b.example.com","highlights":["part one","part two"]}
		]}`))
	}))
	defer server.Close()

	client := NewExaClient(zap.NewNop(), exaTestConfig(server.URL), nil)
	evidence, err := client.Search(context.Background(), domain.SearchRequest{
		Query:        "home fitness",
		NumResults:   10,
		ExcerptChars: 2000,
	})
	require.NoError(t, err)

	require.Equal(t, "exa-test-key", apiKey)
	require.Equal(t, "home fitness", captured.Query)
	require.Equal(t, "auto", captured.Type)
	require.Equal(t, 10, captured.NumResults)
	require.NotNil(t, captured.Contents)
	require.Equal(t, 2000, captured.Contents.Highlights.MaxCharacters)

	require.Len(t, evidence, 2)
	require.Equal(t, "First", evidence[0].Title)
	require.Equal(t, "full text", evidence[0].Excerpt)
	require.Equal(t, "part one part two", evidence[1].Excerpt)
}

func TestExaSearchRejectsBlankQuery(t *testing.T) {
	client := NewExaClient(zap.NewNop(), exaTestConfig("http://unused"), nil)

	_, err := client.Search(context.Background(), domain.SearchRequest{Query: "   "})
	require.True(t, errors.Is(err, domain.ErrInvalidQuery))
}

func TestExaSearchRequiresAPIKey(t *testing.T) {
	cfg := exaTestConfig("http://unused")
	cfg.Exa.APIKey = ""
	client := NewExaClient(zap.NewNop(), cfg, nil)

	_, err := client.Search(context.Background(), domain.SearchRequest{Query: "home fitness"})
	require.True(t, errors.Is(err, domain.ErrUnavailable))
}

func TestExaSearchSurfacesProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewExaClient(zap.NewNop(), exaTestConfig(server.URL), nil)
	_, err := client.Search(context.Background(), domain.SearchRequest{Query: "home fitness", NumResults: 5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exa status 429")
}
