package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCounter() (*MemoryCounter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCounter()
	c.now = clock.Now
	return c, clock
}

func TestMemoryCounterFixedWindow(t *testing.T) {
	c, clock := newTestCounter()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, resetAt, err := c.Increment(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
		if !resetAt.Equal(clock.Now().Add(time.Minute).Add(-time.Duration(want-1) * 10 * time.Second)) {
			t.Fatalf("resetAt moved: %v", resetAt)
		}
		clock.Advance(10 * time.Second)
	}

	clock.Advance(30 * time.Second)
	got, _, _ := c.Increment(ctx, "k", time.Minute)
	if got != 1 {
		t.Fatalf("count after window = %d, want 1", got)
	}
}

func TestMemoryCounterKeysAreIndependent(t *testing.T) {
	c, _ := newTestCounter()
	ctx := context.Background()
	_, _, _ = c.Increment(ctx, "a", time.Minute)
	_, _, _ = c.Increment(ctx, "a", time.Minute)
	if got, _, _ := c.Increment(ctx, "b", time.Minute); got != 1 {
		t.Fatalf("b count = %d", got)
	}
}

func TestMemoryCounterSweep(t *testing.T) {
	c, clock := newTestCounter()
	ctx := context.Background()
	_, _, _ = c.Increment(ctx, "short", time.Second)
	_, _, _ = c.Increment(ctx, "long", time.Hour)

	clock.Advance(2 * time.Second)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got, _, _ := c.Increment(ctx, "long", time.Hour); got != 2 {
		t.Fatalf("long window lost: count = %d", got)
	}
}

func TestMemoryCounterConcurrent(t *testing.T) {
	c, _ := newTestCounter()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.Increment(ctx, "k", time.Minute)
		}()
	}
	wg.Wait()
	if got, _, _ := c.Increment(ctx, "k", time.Minute); got != 51 {
		t.Fatalf("count = %d, want 51", got)
	}
}

func TestLimiterAllow(t *testing.T) {
	c, clock := newTestCounter()
	limiter := NewLimiter(c)
	policy := Policy{Name: "ticket-create", Max: 5, Window: 10 * time.Minute}
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := limiter.Allow(ctx, policy, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !d.Allowed || d.Remaining != 5-i || d.Limit != 5 {
			t.Fatalf("request %d: %+v", i, d)
		}
	}
	d, _ := limiter.Allow(ctx, policy, "10.0.0.1")
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("6th request: %+v", d)
	}

	other, _ := limiter.Allow(ctx, policy, "10.0.0.2")
	if !other.Allowed {
		t.Fatal("budget shared across clients")
	}
	auth, _ := limiter.Allow(ctx, Policy{Name: "auth", Max: 20, Window: 15 * time.Minute}, "10.0.0.1")
	if !auth.Allowed {
		t.Fatal("budget shared across policies")
	}

	clock.Advance(10 * time.Minute)
	if d, _ := limiter.Allow(ctx, policy, "10.0.0.1"); !d.Allowed || d.Remaining != 4 {
		t.Fatalf("after window: %+v", d)
	}
}
