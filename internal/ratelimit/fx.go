package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"github.com/scyra/scyra/internal/clock"
	"github.com/scyra/scyra/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ratelimit",
	fx.Provide(NewStore),
	fx.Provide(NewFixedWindow),
)

// NewStore picks the backing store: redis when an address is
// configured, otherwise an in-process counter.
func NewStore(log *zap.Logger, cfg config.Config, clk clock.Clock) Store {
	if cfg.RateLimit.RedisAddr == "" {
		log.Named("ratelimit").Info("using in-memory rate limit store")
		return NewMemoryStore(clk)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	log.Named("ratelimit").Info("using redis rate limit store", zap.String("addr", cfg.RateLimit.RedisAddr))
	return NewRedisStore(client)
}
