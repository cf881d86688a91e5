// Package workpool runs independent work units under a fixed concurrency
// bound and collects one result per unit.
package workpool

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Unit is one independent piece of work.
type Unit[T any] func(ctx context.Context) (T, error)

// Result holds the outcome of the unit at Index in the input slice.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Run executes units with at most limit in flight and returns after every
// unit has finished. A unit that fails or panics records the failure in its
// Result; the remaining units still run. Limits below 1 are treated as 1.
func Run[T any](ctx context.Context, limit int, units []Unit[T]) []Result[T] {
	results := make([]Result[T], len(units))
	if len(units) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	var group errgroup.Group
	group.SetLimit(limit)
	for i, unit := range units {
		i, unit := i, unit
		results[i].Index = i
		group.Go(func() error {
			value, err := runUnit(ctx, unit)
			results[i].Value = value
			results[i].Err = err
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func runUnit[T any](ctx context.Context, unit Unit[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workpool: unit panicked: %v\n%s", r, debug.Stack())
		}
	}()
	if unit == nil {
		return value, fmt.Errorf("workpool: nil unit")
	}
	return unit(ctx)
}

// Errors returns the non-nil errors in results, in input order.
func Errors[T any](results []Result[T]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
