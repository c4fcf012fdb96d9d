package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryCache implements shared.Cache with a map and a cleanup goroutine.
// Values are stored JSON-encoded so callers get copies, matching the Redis cache.
// It is suitable for single-instance deployments and tests.
type InMemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	cfg       shared.CacheConfig
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCache creates a cache and starts its cleanup loop
func NewInMemoryCache(cfg shared.CacheConfig) *InMemoryCache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = shared.DefaultCacheConfig().DefaultTTL
	}
	c := &InMemoryCache{
		entries:  make(map[string]entry),
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop(time.Minute)
	return c
}

// Get implements shared.Cache
func (c *InMemoryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value %q: %w", key, err)
	}
	return true, nil
}

// Set implements shared.Cache
func (c *InMemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate implements shared.Cache
func (c *InMemoryCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// InvalidatePrefix implements shared.Cache
func (c *InMemoryCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

var _ shared.Cache = (*InMemoryCache)(nil)
