// Package parallel runs independent jobs on a bounded number of goroutines.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers returns min(NumCPU, 8), at least 2.
func DefaultWorkers() int {
	return max(2, min(runtime.NumCPU(), 8))
}

// Result holds the outcome of one job.
type Result[T any, R any] struct {
	Input    T
	Value    R
	Err      error
	Duration time.Duration
}

// Map calls fn for every input with at most workers calls in flight and
// returns the results in input order. A failing job does not stop the
// others; jobs not started before ctx is done get ctx's error.
func Map[T any, R any](ctx context.Context, workers int, inputs []T, fn func(ctx context.Context, input T) (R, error)) []Result[T, R] {
	if len(inputs) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	results := make([]Result[T, R], len(inputs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, input := range inputs {
		results[i].Input = input
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			start := time.Now()
			results[i].Value, results[i].Err = fn(ctx, input)
			results[i].Duration = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Errors joins the errors of failed results, or returns nil.
func Errors[T any, R any](results []Result[T, R]) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
