package ratelimit

import (
	"context"
	"time"

	"github.com/scyra/scyra/internal/config"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	"go.uber.org/zap"
)

// FixedWindow denies a key's request once its windowed count passes the
// configured limit.
type FixedWindow struct {
	log     *zap.Logger
	store   Store
	limit   int64
	window  time.Duration
	metrics *obsmetrics.Metrics
}

func NewFixedWindow(log *zap.Logger, cfg config.Config, store Store, metrics *obsmetrics.Metrics) *FixedWindow {
	return &FixedWindow{
		log:     log.Named("ratelimit"),
		store:   store,
		limit:   int64(cfg.RateLimit.Requests),
		window:  cfg.RateLimit.Window,
		metrics: metrics,
	}
}

// Allow counts one request against key and returns ErrRateLimited when
// the window budget is spent. Store failures deny the request.
func (l *FixedWindow) Allow(ctx context.Context, endpoint, key string) error {
	count, err := l.store.Incr(ctx, endpoint+":"+key, l.window)
	if err != nil {
		return err
	}
	if count > l.limit {
		if l.metrics != nil {
			l.metrics.RecordRateLimitDenied(ctx, endpoint)
		}
		l.log.Warn("rate limit exceeded",
			zap.String("endpoint", endpoint),
			zap.String("key", key),
			zap.Int64("count", count),
		)
		return ErrRateLimited
	}
	return nil
}
