package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idempotency:"

// NewIdempotencyStore returns a store that shares the Redis connection of c when
// c is Redis-backed, and an in-memory store otherwise
func NewIdempotencyStore(c shared.Cache) shared.IdempotencyStore {
	if rc, ok := c.(*RedisCache); ok {
		return newRedisIdempotencyStore(rc.client, rc.cfg.KeyPrefix+idempotencyKeyPrefix)
	}
	return NewInMemoryIdempotencyStore()
}

// InMemoryIdempotencyStore implements shared.IdempotencyStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	claims    map[string]time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts its cleanup loop
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		claims:   make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop(5 * time.Minute)
	return s
}

// MarkProcessed implements shared.IdempotencyStore
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := s.claims[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed implements shared.IdempotencyStore
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.claims[key]
	return ok && time.Now().Before(expiresAt), nil
}

// Release implements shared.IdempotencyStore
func (s *InMemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Size returns the number of held claims, expired ones included until cleanup
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.claims)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range s.claims {
		if now.After(expiresAt) {
			delete(s.claims, key)
		}
	}
}

// RedisIdempotencyStore implements shared.IdempotencyStore with SET NX, so a key
// is claimed once across every instance sharing the Redis server
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// newRedisIdempotencyStore creates a store on an existing client.
// Close leaves the client open.
func newRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = shared.DefaultCacheConfig().KeyPrefix + idempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed implements shared.IdempotencyStore
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

// IsProcessed implements shared.IdempotencyStore
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return n > 0, nil
}

// Release implements shared.IdempotencyStore
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close implements shared.IdempotencyStore. The client is owned by its creator.
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var (
	_ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
	_ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
)
