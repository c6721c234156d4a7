// Package llm abstracts generative-model completions behind a provider
// interface so callers never depend on a concrete vendor API.
package llm

import (
	"context"
	"errors"
)

var (
	ErrUnavailable   = errors.New("llm provider unavailable")
	ErrEmptyResponse = errors.New("llm returned no candidates")
)

// Provider defines the interface for generative-model providers.
type Provider interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}

// CompletionOptions configures a completion request.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// Format is "json" or "text". JSON asks the model to emit a bare JSON
	// document with no prose around it.
	Format string
}
