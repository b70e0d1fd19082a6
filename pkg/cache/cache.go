// Package cache provides byte-level caching for computed layouts, rendered
// artifacts, and relationship batches.
//
// Keys are derived from content hashes, so a changed roster produces new
// keys and stale entries simply age out; nothing is invalidated explicitly.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: shared cache for the API server
//   - [NullCache]: caching disabled
//
// # Keys
//
// A [Keyer] builds keys; wrap it in [NewScopedKeyer] to give each tree or
// user its own namespace:
//
//	keys := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "tree:smith:")
//	key := keys.LayoutKey(rosterHash, cache.LayoutKeyOpts{Focus: "alice"})
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values under string keys.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data for ttl; ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default time-to-live per entry kind.
const (
	TTLLayout    = 7 * 24 * time.Hour
	TTLArtifact  = 7 * 24 * time.Hour
	TTLRelations = 24 * time.Hour
)
