package shared

import (
	"context"
	"time"
)

// Cache is a key-value cache with per-entry expiry.
// Values are serialized by the implementation; Get decodes into dest.
type Cache interface {
	// Get loads the value stored under key into dest.
	// It returns false when the key is missing or expired.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl. A zero ttl uses the cache default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Invalidate removes the given keys
	Invalidate(ctx context.Context, keys ...string) error

	// InvalidatePrefix removes every key starting with prefix
	InvalidatePrefix(ctx context.Context, prefix string) error

	// Close releases resources held by the cache
	Close() error
}

// CacheConfig holds configuration for cache instances
type CacheConfig struct {
	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration

	// KeyPrefix namespaces keys in shared backends
	KeyPrefix string
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL: 5 * time.Minute,
		KeyPrefix:  "feeledger:",
	}
}
