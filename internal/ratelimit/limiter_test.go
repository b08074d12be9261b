package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tripwise/insights-gateway/internal/config"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Unauthenticated: config.TierLimits{PerMinute: 3, PerHour: 10, PerDay: 30},
		Authenticated:   config.TierLimits{PerMinute: 20, PerHour: 400, PerDay: 1500},
		Premium:         config.TierLimits{PerMinute: 30, PerHour: 600, PerDay: 2000},
	}
}

func newTestLimiter() (*Limiter, *time.Time) {
	l := New(testConfig())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAdmit_ExactThresholdThenReject(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		if d := l.Admit("ip:1.2.3.4", "unauthenticated"); !d.Allowed {
			t.Fatalf("request %d rejected; limit of 3 must admit exactly 3", i+1)
		}
	}

	d := l.Admit("ip:1.2.3.4", "unauthenticated")
	if d.Allowed {
		t.Fatal("4th request within the minute must be rejected")
	}
	if d.Violated != PerMinute {
		t.Fatalf("Violated = %q; want %q", d.Violated, PerMinute)
	}
	if d.Tier != "unauthenticated" {
		t.Fatalf("Tier = %q", d.Tier)
	}
	if d.Limits.PerMinute != 3 || d.Limits.PerHour != 10 || d.Limits.PerDay != 30 {
		t.Fatalf("Limits = %+v", d.Limits)
	}
	if d.ResetAt.IsZero() {
		t.Fatal("ResetAt must be set on rejection")
	}
}

func TestAdmit_TierThresholdsDiffer(t *testing.T) {
	l, _ := newTestLimiter()

	// The same minute that throttles anonymous callers at 3 admits 20
	// authenticated ones.
	for i := 0; i < 20; i++ {
		if d := l.Admit("user:u1", "authenticated"); !d.Allowed {
			t.Fatalf("authenticated request %d rejected", i+1)
		}
	}
	if d := l.Admit("user:u1", "authenticated"); d.Allowed {
		t.Fatal("21st authenticated request must be rejected")
	}

	for i := 0; i < 30; i++ {
		if d := l.Admit("user:p1", "premium"); !d.Allowed {
			t.Fatalf("premium request %d rejected", i+1)
		}
	}
	if d := l.Admit("user:p1", "premium"); d.Allowed {
		t.Fatal("31st premium request must be rejected")
	}
}

func TestAdmit_UnknownTierFallsBackToUnauthenticated(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 3; i++ {
		if d := l.Admit("ip:9.9.9.9", "gold"); !d.Allowed {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if d := l.Admit("ip:9.9.9.9", "gold"); d.Allowed {
		t.Fatal("unknown tier must use unauthenticated thresholds")
	}
}

func TestAdmit_IdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		l.Admit("ip:1.1.1.1", "unauthenticated")
	}
	if d := l.Admit("ip:1.1.1.1", "unauthenticated"); d.Allowed {
		t.Fatal("first identity should be throttled")
	}
	if d := l.Admit("ip:2.2.2.2", "unauthenticated"); !d.Allowed {
		t.Fatal("other identities must be unaffected")
	}
}

func TestAdmit_WindowResetRestoresAllowance(t *testing.T) {
	l, now := newTestLimiter()
	id := "ip:1.2.3.4"

	for i := 0; i < 3; i++ {
		l.Admit(id, "unauthenticated")
	}
	if d := l.Admit(id, "unauthenticated"); d.Allowed {
		t.Fatal("expected rejection before window reset")
	}

	*now = now.Add(61 * time.Second)
	d := l.Admit(id, "unauthenticated")
	if !d.Allowed {
		t.Fatal("expected fresh minute window to admit")
	}
}

func TestAdmit_HourlyViolationAfterMinuteWindowsReset(t *testing.T) {
	l, now := newTestLimiter()
	id := "ip:1.2.3.4"

	// 10 allowed requests spread over minutes exhaust the hourly budget
	// without ever tripping the per-minute limit.
	for i := 0; i < 10; i++ {
		if d := l.Admit(id, "unauthenticated"); !d.Allowed {
			t.Fatalf("request %d rejected early: %+v", i+1, d)
		}
		*now = now.Add(2 * time.Minute)
	}

	d := l.Admit(id, "unauthenticated")
	if d.Allowed {
		t.Fatal("11th request within the hour must be rejected")
	}
	if d.Violated != Hourly {
		t.Fatalf("Violated = %q; want %q", d.Violated, Hourly)
	}
}

func TestAdmit_RejectionDoesNotConsumeCoarserBudget(t *testing.T) {
	l, now := newTestLimiter()
	id := "ip:1.2.3.4"

	// Hammer within one minute: 3 admits plus many per-minute rejections.
	for i := 0; i < 13; i++ {
		l.Admit(id, "unauthenticated")
	}

	// Rejected requests must not have counted against the hour, so 7 more
	// spread-out requests (10 hourly total) still fit.
	for i := 0; i < 7; i++ {
		*now = now.Add(2 * time.Minute)
		if d := l.Admit(id, "unauthenticated"); !d.Allowed {
			t.Fatalf("request %d rejected; minute rejections leaked into the hourly window: %+v", i+1, d)
		}
	}
	*now = now.Add(2 * time.Minute)
	if d := l.Admit(id, "unauthenticated"); d.Allowed {
		t.Fatal("hourly budget should now be exhausted")
	}
}

func TestAdmit_ResetAtMatchesWindowStart(t *testing.T) {
	l, now := newTestLimiter()
	start := *now
	id := "ip:1.2.3.4"

	for i := 0; i < 3; i++ {
		l.Admit(id, "unauthenticated")
	}
	*now = now.Add(30 * time.Second)
	d := l.Admit(id, "unauthenticated")
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if want := start.Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Fatalf("ResetAt = %v; want %v", d.ResetAt, want)
	}
}

func TestSweep_DropsStaleWindows(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < 100; i++ {
		l.Admit(fmt.Sprintf("ip:10.0.0.%d", i), "unauthenticated")
	}
	if got := l.tracked.Load(); got != 300 {
		t.Fatalf("tracked = %d; want 300 (3 windows per identity)", got)
	}

	// Beyond twice the daily duration everything is stale.
	l.Sweep(now.Add(49 * time.Hour))
	if got := l.tracked.Load(); got != 0 {
		t.Fatalf("tracked after sweep = %d; want 0", got)
	}

	// A swept identity starts fresh.
	if d := l.Admit("ip:10.0.0.1", "unauthenticated"); !d.Allowed {
		t.Fatal("swept identity must be admitted")
	}
}

func TestSweep_KeepsActiveWindows(t *testing.T) {
	l, now := newTestLimiter()
	l.Admit("ip:1.1.1.1", "unauthenticated")

	// One minute later the minute window is within 2x its duration and the
	// hour/day windows are trivially fresh.
	l.Sweep(now.Add(time.Minute))
	if got := l.tracked.Load(); got != 3 {
		t.Fatalf("tracked = %d; want 3", got)
	}

	// At 2h+ the minute and hour windows are stale, the day window is not.
	l.Sweep(now.Add(3 * time.Hour))
	if got := l.tracked.Load(); got != 1 {
		t.Fatalf("tracked = %d; want 1 (day window only)", got)
	}
}

func TestAdmit_ConcurrentSameIdentity(t *testing.T) {
	l := New(config.RateLimitConfig{
		Unauthenticated: config.TierLimits{PerMinute: 50, PerHour: 50, PerDay: 50},
		Authenticated:   config.TierLimits{PerMinute: 1, PerHour: 1, PerDay: 1},
		Premium:         config.TierLimits{PerMinute: 1, PerHour: 1, PerDay: 1},
	})

	const workers = 100
	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Admit("ip:1.2.3.4", "unauthenticated").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	var n int
	for ok := range allowed {
		if ok {
			n++
		}
	}
	if n != 50 {
		t.Fatalf("admitted %d; want exactly 50 under concurrency", n)
	}
}
