// Package domain defines the web evidence search contract.
package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidQuery = errors.New("invalid search query")
	ErrUnavailable  = errors.New("search provider unavailable")
)

// Evidence is one web source returned by the provider, order preserved.
type Evidence struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// SearchRequest bounds a single provider call.
type SearchRequest struct {
	Query        string
	NumResults   int
	ExcerptChars int
}

// Service performs web evidence searches. Results come back in provider
// order with no local re-ranking and no retries.
type Service interface {
	Search(ctx context.Context, req SearchRequest) ([]Evidence, error)
}
