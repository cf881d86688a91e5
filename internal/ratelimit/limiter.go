// Package ratelimit spaces calls to one external endpoint class.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter enforces a minimum interval between consecutive calls. Each Wait
// reserves the next free slot under the lock and then sleeps outside it, so
// concurrent callers are spaced apart without serializing their work.
type Limiter struct {
	name     string
	interval time.Duration

	mu   sync.Mutex
	next time.Time

	waits atomic.Int64

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New returns a limiter for the named endpoint class. A non-positive interval
// disables spacing but still counts invocations.
func New(name string, interval time.Duration) *Limiter {
	if interval < 0 {
		interval = 0
	}
	return &Limiter{
		name:     name,
		interval: interval,
		now:      time.Now,
		sleep:    SleepWithContext,
	}
}

// Name returns the endpoint class the limiter guards.
func (l *Limiter) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Wait blocks until the caller's reserved slot arrives or ctx is done.
// A nil limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.waits.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	now := l.now()
	slot := now
	if l.next.After(now) {
		slot = l.next
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	return l.sleep(ctx, slot.Sub(now))
}

// Invocations reports how many times Wait has been called.
func (l *Limiter) Invocations() int64 {
	if l == nil {
		return 0
	}
	return l.waits.Load()
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
