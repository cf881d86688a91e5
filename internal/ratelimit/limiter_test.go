package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	return nil
}

func newFakeLimiter(interval time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New("test", interval)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestWaitSpacesSequentialCalls(t *testing.T) {
	l, clock := newFakeLimiter(500 * time.Millisecond)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	want := []time.Duration{0, 500 * time.Millisecond, time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), clock.sleeps)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Fatalf("sleep %d: expected %s, got %s", i, want[i], clock.sleeps[i])
		}
	}
	if l.Invocations() != 3 {
		t.Fatalf("expected 3 invocations, got %d", l.Invocations())
	}
}

func TestWaitReservesDistinctSlotsConcurrently(t *testing.T) {
	l, clock := newFakeLimiter(100 * time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Wait(context.Background())
		}()
	}
	wg.Wait()

	sleeps := append([]time.Duration(nil), clock.sleeps...)
	sort.Slice(sleeps, func(i, j int) bool { return sleeps[i] < sleeps[j] })
	for i, got := range sleeps {
		if want := time.Duration(i) * 100 * time.Millisecond; got != want {
			t.Fatalf("slot %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestWaitAfterIdleDoesNotSleep(t *testing.T) {
	l, clock := newFakeLimiter(time.Second)
	_ = l.Wait(context.Background())
	clock.mu.Lock()
	clock.now = clock.now.Add(5 * time.Second)
	clock.mu.Unlock()
	_ = l.Wait(context.Background())
	if clock.sleeps[1] != 0 {
		t.Fatalf("expected no sleep after idle period, got %s", clock.sleeps[1])
	}
}

func TestWaitHonoursCancelledContext(t *testing.T) {
	l := New("test", time.Hour)
	_ = l.Wait(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNilLimiterIsNoop(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if l.Invocations() != 0 {
		t.Fatal("expected zero invocations for nil limiter")
	}
}

func TestSleepWithContextReturnsEarly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := SleepWithContext(ctx, time.Minute); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("sleep did not return early")
	}
}

func TestLimiterDescribesItself(t *testing.T) {
	l := New("replicate", 250*time.Millisecond)
	if l.Name() != "replicate" || l.Interval() != 250*time.Millisecond {
		t.Fatalf("unexpected limiter %q/%s", l.Name(), l.Interval())
	}
	var none *Limiter
	if none.Name() != "" || none.Interval() != 0 {
		t.Fatal("expected zero values from nil limiter")
	}
}
