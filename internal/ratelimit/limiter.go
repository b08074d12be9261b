// Package ratelimit implements per-identity, multi-window admission control
// for the AI gateway. Each identity is tracked against three rolling windows
// (minute, hour, day) with thresholds selected by caller tier; the finest
// window is checked first so a burst is stopped before it consumes hourly or
// daily budget.
//
// The limiter is an explicitly owned service object: construct it once at
// startup and hand it to the HTTP layer. It is safe for concurrent use and
// serializes read-modify-write per (identity, window) only, so unrelated
// identities never contend on a shared lock.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripwise/insights-gateway/internal/config"
)

// Granularity names a rolling-window size. The string values are the wire
// names used in 429 payloads.
type Granularity string

const (
	PerMinute Granularity = "per-minute"
	Hourly    Granularity = "hourly"
	Daily     Granularity = "daily"
)

// Duration returns the window length for a granularity.
func (g Granularity) Duration() time.Duration {
	switch g {
	case PerMinute:
		return time.Minute
	case Hourly:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// granularities in check order: finest first, so a rejected burst does not
// consume coarser-window budget.
var granularities = [3]Granularity{PerMinute, Hourly, Daily}

// sweepHighWater triggers a cleanup pass once the total tracked window count
// crosses this bound.
const sweepHighWater = 3000

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Violated names the granularity that rejected the request.
	// Empty when Allowed.
	Violated Granularity

	// ResetAt is when the violated window rolls over. Zero when Allowed.
	ResetAt time.Time

	// Tier and Limits echo the thresholds the decision was made against,
	// for the 429 response body.
	Tier   string
	Limits config.TierLimits
}

// window is the mutable counter for one (identity, granularity) pair.
// The per-window mutex serializes its read-modify-write; windows for other
// identities are untouched.
type window struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// Limiter enforces tiered rolling-window limits per identity.
type Limiter struct {
	cfg config.RateLimitConfig

	// windows[i] maps identity → *window for granularities[i].
	windows [3]sync.Map

	tracked         atomic.Int64 // approximate total window count, drives sweeps
	totalRequests   atomic.Int64
	totalRejections atomic.Int64
	lastStatsLog    atomic.Int64 // unix seconds

	// now is swappable in tests to step through windows without sleeping.
	now func() time.Time
}

// New constructs a Limiter with the given tier thresholds.
func New(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{cfg: cfg, now: time.Now}
	l.lastStatsLog.Store(time.Now().Unix())
	return l
}

// Admit records one request for identity under the given tier and decides
// whether it may proceed.
//
// Windows are checked finest-first. Within a window the counter is
// incremented and the request rejected when the new count strictly exceeds
// the threshold, so a configured limit of N admits exactly N requests per
// window. Once a window rejects, coarser windows are neither checked nor
// incremented. A window whose age exceeds its duration resets to count zero
// before the increment, which is why the first request of a fresh window
// observes count 1.
func (l *Limiter) Admit(identity, tier string) Decision {
	now := l.now()
	limits := l.cfg.Limits(tier)
	thresholds := [3]int{limits.PerMinute, limits.PerHour, limits.PerDay}

	l.totalRequests.Add(1)

	for i, g := range granularities {
		w := l.windowFor(i, identity, now)
		dur := g.Duration()

		w.mu.Lock()
		if now.Sub(w.start) > dur {
			w.start = now
			w.count = 0
		}
		w.count++
		count, start := w.count, w.start
		w.mu.Unlock()

		if count > thresholds[i] {
			l.totalRejections.Add(1)
			log.Warn().
				Str("identity", identity).
				Str("tier", tier).
				Str("granularity", string(g)).
				Int("limit", thresholds[i]).
				Msg("admission rejected")
			l.housekeep(now)
			return Decision{
				Violated: g,
				ResetAt:  start.Add(dur),
				Tier:     tier,
				Limits:   limits,
			}
		}
	}

	l.housekeep(now)
	return Decision{Allowed: true, Tier: tier, Limits: limits}
}

// windowFor fetches or lazily creates the window for (granularity, identity).
func (l *Limiter) windowFor(i int, identity string, now time.Time) *window {
	if v, ok := l.windows[i].Load(identity); ok {
		return v.(*window)
	}
	v, loaded := l.windows[i].LoadOrStore(identity, &window{start: now})
	if !loaded {
		l.tracked.Add(1)
	}
	return v.(*window)
}

// housekeep emits the hourly aggregate stats line and sweeps stale windows
// when the tracked-key count crosses the high-water mark.
func (l *Limiter) housekeep(now time.Time) {
	if last := l.lastStatsLog.Load(); now.Unix()-last > 3600 &&
		l.lastStatsLog.CompareAndSwap(last, now.Unix()) {
		log.Info().
			Int64("requests", l.totalRequests.Swap(0)).
			Int64("rejections", l.totalRejections.Swap(0)).
			Int64("tracked_windows", l.tracked.Load()).
			Msg("admission stats")
	}
	if l.tracked.Load() > sweepHighWater {
		l.Sweep(now)
	}
}

// Sweep drops every window that has been idle beyond twice its duration,
// bounding limiter memory. Safe to call concurrently with Admit: a window
// deleted while a request holds its pointer simply gets recreated on the
// identity's next request, which only widens that identity's allowance by
// one window reset.
func (l *Limiter) Sweep(now time.Time) {
	var remaining int64
	for i, g := range granularities {
		stale := 2 * g.Duration()
		l.windows[i].Range(func(k, v any) bool {
			w := v.(*window)
			w.mu.Lock()
			old := now.Sub(w.start) > stale
			w.mu.Unlock()
			if old {
				l.windows[i].Delete(k)
			} else {
				remaining++
			}
			return true
		})
	}
	l.tracked.Store(remaining)
	log.Debug().Int64("tracked_windows", remaining).Msg("admission sweep")
}
