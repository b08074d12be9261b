package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// keyPrefix namespaces gateway entries inside a shared Redis instance.
const keyPrefix = "ai:cache:"

// scanBatch bounds each SCAN iteration so enumeration never stalls the
// shared store the way a blocking KEYS call would.
const scanBatch = 100

// RedisStore is the distributed cache backend. Values are stored with a
// server-side TTL, so expiry is enforced by Redis itself and Get can never
// observe a stale value. Every Redis fault degrades to a miss or a no-op
// with an error log; the cache is best-effort by contract.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	// Hit/miss counters are process-local; Redis-side counters would need
	// INCR round-trips per lookup and are not worth the latency here.
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore constructs a RedisStore from a redis:// URL.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client: redis.NewClient(opt),
		ttl:    ttl,
	}, nil
}

// Ping verifies connectivity; called once at startup so a misconfigured
// Redis fails fast instead of silently serving misses forever.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }

// Get returns the value for key. Absent keys, expired keys, and Redis
// errors all count as misses.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	v, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		s.misses.Add(1)
		return "", false
	}
	if err != nil {
		s.misses.Add(1)
		log.Error().Err(err).Str("key", key).Msg("redis get failed")
		return "", false
	}
	s.hits.Add(1)
	return v, true
}

// Put stores value under key with the configured server-side TTL.
// An existing key is overwritten and its TTL restarted.
func (s *RedisStore) Put(ctx context.Context, key, value string) {
	if err := s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("redis put failed")
	}
}

// Evict removes a single key.
func (s *RedisStore) Evict(ctx context.Context, key string) {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("redis evict failed")
	}
}

// EvictAll removes every gateway-owned key using an incremental SCAN.
func (s *RedisStore) EvictAll(ctx context.Context) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Error().Err(err).Str("key", iter.Val()).Msg("redis evict failed")
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		log.Error().Err(err).Msg("redis evict-all scan failed")
		return
	}
	s.hits.Store(0)
	s.misses.Store(0)
	log.Info().Int64("evicted", deleted).Msg("cache cleared")
}

// Stats reports process-local hit/miss counters and the current key count,
// the latter measured with an incremental SCAN.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	var size int64
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		log.Error().Err(err).Msg("redis stats scan failed")
	}
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   size,
	}
}

// Kind identifies this backend.
func (s *RedisStore) Kind() string { return KindRedis }
