// Package ratelimit implements the multi-dimensional fixed-window
// counters enforced at the ingestion endpoint: per-client-IP and
// per-principal, each independent and all required to pass.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is a shared counter with atomic increment and an
// expiry set only on first creation, matching the "increment, set TTL if
// new" contract: count is the value after this increment, resetIn is how
// long until the window for key rolls over.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// RedisStore backs counters with Redis INCR + EXPIRE (NX), so a concurrent
// burst of first requests cannot each restart the window.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a RedisStore over an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// incrScript increments key, and only on the increment that creates the key
// (count == 1) sets an expiry. This keeps a burst of concurrent first
// requests from each resetting the window.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: redis incr: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: unexpected script result shape")
	}
	count, _ := vals[0].(int64)
	ttlMillis, _ := vals[1].(int64)
	if ttlMillis < 0 {
		ttlMillis = window.Milliseconds()
	}
	return count, time.Duration(ttlMillis) * time.Millisecond, nil
}

// memoryCounter is a single key's in-process count-and-expiry state.
type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore, used in single-instance
// deployments or tests where an external KV is unavailable.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*memoryCounter)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &memoryCounter{count: 0, expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, time.Until(c.expiresAt), nil
}
