package cachesvc

import (
	"context"
	"sync"
	"time"

	"github.com/tshilobo/soko/core"
)

type inMemEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// InMemCache is a map-backed core.Cache for dev and tests.
type InMemCache struct {
	mu      sync.RWMutex
	entries map[string]inMemEntry
}

var _ core.Cache = (*InMemCache)(nil)

func NewInMemCache() *InMemCache {
	return &InMemCache{entries: make(map[string]inMemEntry)}
}

func (c *InMemCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, core.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, core.ErrCacheMiss
	}
	return entry.value, nil
}

func (c *InMemCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := inMemEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *InMemCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}
