// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the edge token-bucket limiter: a lightweight,
// process-local flood guard applied to the whole HTTP surface before the
// tiered admission policy runs. Buckets are per identity, built on
// golang.org/x/time/rate, with opportunistic garbage collection of idle
// entries.
//
// Notes:
//   - Process-local by design; the tiered limiter is the policy layer, this
//     one only sheds floods cheaply before they reach it.
//   - Not an authorization mechanism.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor holds one identity's bucket and the last time it was seen, so idle
// buckets can be evicted.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// EdgeLimiter is a per-identity token-bucket limiter. Buckets are created on
// demand in a mutex-guarded map; idle buckets are evicted after a TTL via
// opportunistic cleanup during lookups. Safe for concurrent use.
type EdgeLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewEdgeLimiter constructs an EdgeLimiter with the given tokens-per-second
// and burst size. A burst <= 0 is coerced to 1.
func NewEdgeLimiter(rps float64, burst int) *EdgeLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &EdgeLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// bucket returns (and refreshes) the limiter for key, creating it if absent.
// Cleanup runs before the requested visitor is touched so a stale bucket can
// be evicted even when it is the one being fetched.
func (el *EdgeLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()

	el.mu.Lock()
	el.lookups++
	if el.lookups >= 5000 {
		for k, v := range el.visitors {
			if now.Sub(v.lastSeen) >= el.ttl {
				delete(el.visitors, k)
			}
		}
		el.lookups = 0
	}

	if v, ok := el.visitors[key]; ok {
		v.lastSeen = now
		lim := v.limiter
		el.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(el.rps, el.burst)
	el.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	el.mu.Unlock()
	return lim
}

// Handler returns a Gin middleware enforcing the bucket for the resolved
// principal. Requires Identity() earlier in the chain. Rejections get a
// compact 429 envelope; quota-style detail belongs to the tiered limiter.
func (el *EdgeLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if el.bucket(PrincipalFrom(c).Identity()).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
