// Package genstore keeps generation counters for skucache scopes. Bumping a
// scope's generation invalidates every entry written under the old one.
package genstore

import "context"

// GenStore abstracts where generations live. Use Local for a single process
// and Redis when several processes share one cache.
type GenStore interface {
	// Current returns the scope's generation; an unknown scope is 0.
	Current(ctx context.Context, scope string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, scope string) (uint64, error)
	Close(ctx context.Context) error
}
