package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisCache implements shared.Cache on Redis. Keys are namespaced with the
// configured prefix and values are stored as JSON.
type RedisCache struct {
	client *redis.Client
	cfg    shared.CacheConfig
}

// NewRedisCache connects to Redis and verifies the connection with a ping
func NewRedisCache(rc config.RedisConfig, cfg shared.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr(),
		Password: rc.Password,
		DB:       rc.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCacheWithClient(client, cfg), nil
}

// newRedisCacheWithClient wraps an existing client
func newRedisCacheWithClient(client *redis.Client, cfg shared.CacheConfig) *RedisCache {
	defaults := shared.DefaultCacheConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}
	return &RedisCache{client: client, cfg: cfg}
}

func (c *RedisCache) key(k string) string {
	return c.cfg.KeyPrefix + k
}

// Get implements shared.Cache
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value %q: %w", key, err)
	}
	return true, nil
}

// Set implements shared.Cache
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}

// Invalidate implements shared.Cache
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	return nil
}

// InvalidatePrefix implements shared.Cache using SCAN so Redis is never blocked
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	pattern := c.key(prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ shared.Cache = (*RedisCache)(nil)
