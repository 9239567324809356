package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// bulkResult is the outcome of one id in a fan-out.
type bulkResult[T any] struct {
	ID    int
	Value T
	Err   error
}

// runBulk runs op for every id with at most workers in flight. Results keep
// the order of ids; ids skipped because ctx ended carry ctx's error.
func runBulk[T any](ctx context.Context, ids []int, workers int, progress io.Writer, op func(ctx context.Context, id int) (T, error)) []bulkResult[T] {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	results := make([]bulkResult[T], len(ids))
	var done atomic.Int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		results[i].ID = id
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i].Err = err
				return nil
			}
			defer sem.Release(1)

			results[i].Value, results[i].Err = op(gctx, id)

			if progress != nil {
				n := done.Add(1)
				mu.Lock()
				_, _ = fmt.Fprintf(progress, "\rProcessed %d/%d", n, len(ids))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if progress != nil && len(ids) > 0 {
		_, _ = fmt.Fprintln(progress)
	}
	return results
}

// countFailures returns how many results carry an error.
func countFailures[T any](results []bulkResult[T]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
