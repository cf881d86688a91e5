package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunBoundsConcurrency(t *testing.T) {
	for _, tc := range []struct {
		n, limit int
	}{
		{n: 1, limit: 1},
		{n: 6, limit: 3},
		{n: 10, limit: 2},
		{n: 4, limit: 8},
	} {
		tc := tc
		t.Run(fmt.Sprintf("n=%d,k=%d", tc.n, tc.limit), func(t *testing.T) {
			var inFlight, peak atomic.Int64
			units := make([]Unit[int], tc.n)
			for i := range units {
				i := i
				units[i] = func(ctx context.Context) (int, error) {
					cur := inFlight.Add(1)
					for {
						old := peak.Load()
						if cur <= old || peak.CompareAndSwap(old, cur) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					inFlight.Add(-1)
					return i * 10, nil
				}
			}

			results := Run(context.Background(), tc.limit, units)
			if len(results) != tc.n {
				t.Fatalf("expected %d results, got %d", tc.n, len(results))
			}
			if got := peak.Load(); got > int64(tc.limit) {
				t.Fatalf("peak in-flight %d exceeded bound %d", got, tc.limit)
			}
			for i, r := range results {
				if r.Index != i || r.Value != i*10 || r.Err != nil {
					t.Fatalf("unexpected result %d: %+v", i, r)
				}
			}
		})
	}
}

func TestRunIsolatesFailuresAndPanics(t *testing.T) {
	boom := errors.New("boom")
	var completed atomic.Int64
	units := []Unit[string]{
		func(context.Context) (string, error) { completed.Add(1); return "a", nil },
		func(context.Context) (string, error) { completed.Add(1); return "", boom },
		func(context.Context) (string, error) { panic("kaboom") },
		func(context.Context) (string, error) { completed.Add(1); return "d", nil },
		nil,
	}

	done := make(chan []Result[string], 1)
	go func() { done <- Run(context.Background(), 2, units) }()

	var results []Result[string]
	select {
	case results = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not resolve")
	}

	if len(results) != len(units) {
		t.Fatalf("expected %d results, got %d", len(units), len(results))
	}
	if completed.Load() != 3 {
		t.Fatalf("expected 3 units to complete, got %d", completed.Load())
	}
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("expected boom error, got %v", results[1].Err)
	}
	if results[2].Err == nil {
		t.Fatal("expected panic to be captured as an error")
	}
	if results[4].Err == nil {
		t.Fatal("expected nil unit to report an error")
	}
	if results[0].Value != "a" || results[3].Value != "d" {
		t.Fatalf("unexpected values: %+v", results)
	}
	if errs := Errors(results); len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(errs))
	}
}

func TestRunClampsLimit(t *testing.T) {
	var mu sync.Mutex
	order := []int{}
	units := make([]Unit[struct{}], 3)
	for i := range units {
		i := i
		units[i] = func(context.Context) (struct{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return struct{}{}, nil
		}
	}
	results := Run(context.Background(), 0, units)
	if len(results) != 3 || len(order) != 3 {
		t.Fatalf("expected all units to run, got results=%d order=%v", len(results), order)
	}
}

func TestRunEmpty(t *testing.T) {
	if results := Run[int](context.Background(), 3, nil); len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
