// Package store defines the byte store behind skucache and its adapters
// (store/ristretto, store/bigcache, store/redis).
package store

import (
	"context"
	"time"
)

// Store is a TTL byte store. Implementations must be safe for concurrent use.
//
// A miss is (nil, false, nil). Errors are reserved for transport or backend
// failures; skucache treats them as misses and falls through to the provider.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means the store's default lifetime.
	// A store may drop a write (admission policy, full shard) without error.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Del(ctx context.Context, key string) error
	Close(ctx context.Context) error
}
