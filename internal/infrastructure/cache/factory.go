package cache

import (
	"fmt"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Option configures NewCache
type Option func(*options)

type options struct {
	logger        *zap.Logger
	allowFallback bool
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory.
// Fallback is allowed by default.
func WithInMemoryFallback(allow bool) Option {
	return func(o *options) {
		o.allowFallback = allow
	}
}

// NewCache returns a Redis cache when Redis is configured and reachable, and an
// in-memory cache otherwise
func NewCache(rc config.RedisConfig, cfg shared.CacheConfig, opts ...Option) (shared.Cache, error) {
	o := &options{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(o)
	}

	if !rc.Enabled() {
		o.logger.Info("Redis not configured, using in-memory cache")
		return NewInMemoryCache(cfg), nil
	}

	rcache, err := NewRedisCache(rc, cfg)
	if err == nil {
		o.logger.Info("Using Redis cache", zap.String("addr", rc.Addr()))
		return rcache, nil
	}
	if !o.allowFallback {
		return nil, fmt.Errorf("redis cache required but unavailable: %w", err)
	}

	o.logger.Warn("Redis unavailable, falling back to in-memory cache. "+
		"Cached KPIs and client mappings will not be shared across instances.",
		zap.String("addr", rc.Addr()),
		zap.Error(err),
	)
	return NewInMemoryCache(cfg), nil
}
