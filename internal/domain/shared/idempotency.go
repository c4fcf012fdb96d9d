package shared

import (
	"context"
	"time"
)

// IdempotencyStore records client-supplied request keys so a retried write is
// applied once. Implementations must make MarkProcessed atomic across callers.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if it is already held.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key is currently held
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so a failed request can be retried with the same key
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig holds idempotency settings
type IdempotencyConfig struct {
	// TTL is how long a claimed key is remembered
	TTL time.Duration
	// Enabled turns request deduplication on or off
	Enabled bool
}

// DefaultIdempotencyConfig returns sensible defaults
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
