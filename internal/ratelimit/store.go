// Package ratelimit provides a fixed-window request limiter over an
// injected counter store, shared via redis or kept in process memory.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// Store increments a windowed counter. The first increment of a key
// starts its window; the count resets when the window elapses.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}
