package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Store is a key/value backend with per-entry expiry.
type Store interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore keeps entries in Redis using SET with EX.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a bounded in-process Store. The LRU bounds memory and
// evicts entries older than maxAge; each entry also carries its own expiry.
type MemoryStore struct {
	mu    sync.Mutex
	lru   *expirable.LRU[string, memoryEntry]
	clock func() time.Time
}

// NewMemoryStore returns a MemoryStore holding at most size entries. Entries
// are dropped from the LRU after maxAge regardless of their own TTL.
func NewMemoryStore(size int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		lru:   expirable.NewLRU[string, memoryEntry](size, nil, maxAge),
		clock: time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.clock().Before(entry.expiresAt) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Add(key, memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.clock().Add(ttl),
	})
	return nil
}

// Len returns the number of entries currently held.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}
