package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// memoryEntry is a cached value plus the metadata the eviction policy needs.
type memoryEntry struct {
	value        string
	cachedAt     time.Time
	lastAccessed time.Time
	hitCount     int
}

// MemoryStore is the bounded in-process cache backend: a mutex-guarded map
// with lazy TTL expiry on read and least-recently-accessed eviction on write
// once the size cap is reached. Suited to single-node deployments; use
// RedisStore when running multiple replicas.
type MemoryStore struct {
	ttl     time.Duration
	maxSize int

	mu      sync.Mutex
	entries map[string]*memoryEntry

	hits   atomic.Int64
	misses atomic.Int64

	// now is swappable in tests to exercise expiry without sleeping.
	now func() time.Time
}

// NewMemoryStore constructs a MemoryStore holding at most maxSize entries,
// each expiring ttl after its last Put.
func NewMemoryStore(ttl time.Duration, maxSize int) *MemoryStore {
	if maxSize < 1 {
		maxSize = 1
	}
	return &MemoryStore{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*memoryEntry, maxSize),
		now:     time.Now,
	}
}

// Get returns the value for key when present and unexpired. Expired entries
// are removed on read (lazy expiry) and counted as misses. A hit refreshes
// lastAccessed and the per-entry hit counter.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	now := s.now()

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		s.misses.Add(1)
		return "", false
	}
	if now.After(e.cachedAt.Add(s.ttl)) {
		delete(s.entries, key)
		s.mu.Unlock()
		s.misses.Add(1)
		log.Debug().Str("key", key).Msg("cache expired")
		return "", false
	}
	e.lastAccessed = now
	e.hitCount++
	v := e.value
	s.mu.Unlock()

	s.hits.Add(1)
	return v, true
}

// Put stores value under key, restarting its TTL. When the store is full and
// key is new, the entry with the oldest lastAccessed is evicted first. The
// eviction scan is O(n), acceptable at the bounded sizes this backend is
// configured with.
func (s *MemoryStore) Put(_ context.Context, key, value string) {
	now := s.now()

	s.mu.Lock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		s.evictOldestLocked()
	}
	s.entries[key] = &memoryEntry{
		value:        value,
		cachedAt:     now,
		lastAccessed: now,
	}
	size := len(s.entries)
	s.mu.Unlock()

	log.Debug().Str("key", key).Int("size", size).Msg("cache put")
}

// Evict removes a single key. Missing keys are a no-op.
func (s *MemoryStore) Evict(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// EvictAll clears every entry and resets the hit/miss counters.
func (s *MemoryStore) EvictAll(_ context.Context) {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]*memoryEntry, s.maxSize)
	s.mu.Unlock()

	s.hits.Store(0)
	s.misses.Store(0)
	log.Info().Int("evicted", n).Msg("cache cleared")
}

// Stats reports hit/miss counters and the current entry count.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.Lock()
	size := int64(len(s.entries))
	s.mu.Unlock()
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   size,
	}
}

// Kind identifies this backend.
func (s *MemoryStore) Kind() string { return KindMemory }

// evictOldestLocked drops the entry with the oldest lastAccessed timestamp.
// Caller must hold s.mu.
func (s *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range s.entries {
		if first || e.lastAccessed.Before(oldest) {
			oldest = e.lastAccessed
			oldestKey = k
			first = false
		}
	}
	if !first {
		delete(s.entries, oldestKey)
		log.Debug().Str("key", oldestKey).Msg("cache lru evict")
	}
}
