package core

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is any service that can cache serialized values with a TTL.
// It backs read-mostly lookups (coupon metadata, catalog pages); callers
// must treat it as best-effort and fall back to the database on miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
