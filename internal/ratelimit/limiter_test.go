package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(clk clock.Clock) *FixedWindow {
	cfg := config.Config{
		RateLimit: config.RateLimitConfig{Requests: 5, Window: time.Minute},
	}
	return NewFixedWindow(zap.NewNop(), cfg, NewMemoryStore(clk), nil)
}

func TestFixedWindowDeniesSixthRequest(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clk)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Allow(ctx, "trends:generate", "user:1"))
	}

	err := limiter.Allow(ctx, "trends:generate", "user:1")
	require.True(t, errors.Is(err, ErrRateLimited))
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clk)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Allow(ctx, "trends:generate", "user:1"))
	}
	require.Error(t, limiter.Allow(ctx, "trends:generate", "user:1"))

	clk.Advance(61 * time.Second)
	require.NoError(t, limiter.Allow(ctx, "trends:generate", "user:1"))
}

func TestFixedWindowIsolatesUsers(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clk)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Allow(ctx, "trends:generate", "user:1"))
	}
	require.Error(t, limiter.Allow(ctx, "trends:generate", "user:1"))
	require.NoError(t, limiter.Allow(ctx, "trends:generate", "user:2"))
}

func TestMemoryStoreSweepsExpiredEntries(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)

	ctx := context.Background()
	count, err := store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	clk.Advance(2 * time.Minute)
	count, err = store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
