// Package cache implements the AI response cache: a key/value store contract
// with TTL semantics, a bounded in-process backend for single-node
// deployments, a Redis backend for horizontally scaled ones, and the key
// derivation strategy shared by both.
package cache

import "context"

// Backend kind identifiers, surfaced in stats and response headers.
const (
	KindMemory = "memory"
	KindRedis  = "redis"
)

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int64 `json:"size"`
}

// HitRate returns hits / (hits + misses), or 0 when no lookups happened.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Store is the response cache contract shared by all backends.
//
// Invariants:
//   - Get never returns a logically expired value, regardless of backend.
//   - Put with an existing key overwrites the value and restarts its TTL.
//   - Backend faults degrade to misses/no-ops; they never propagate.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value for key, or ok=false on a miss
	// (absent, expired, or backend failure).
	Get(ctx context.Context, key string) (value string, ok bool)

	// Put stores value under key with the backend's configured TTL.
	Put(ctx context.Context, key, value string)

	// Evict removes a single key.
	Evict(ctx context.Context, key string)

	// EvictAll removes every cached entry owned by this store.
	EvictAll(ctx context.Context)

	// Stats reports hit/miss counters and the current entry count.
	Stats(ctx context.Context) Stats

	// Kind identifies the backend ("memory" or "redis").
	Kind() string
}
