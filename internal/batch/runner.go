// Package batch executes independent operations over a slice of items with
// bounded concurrency and per-item failure isolation.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/pace"
)

// Outcome is the tagged result of one item's operation. Exactly one of Value
// or Err is meaningful; Err != nil marks the item failed.
type Outcome[R any] struct {
	Index int
	Value R
	Err   error
}

// Failed reports whether the item's operation returned an error.
func (o Outcome[R]) Failed() bool { return o.Err != nil }

// Options controls batch execution.
type Options struct {
	// BatchSize is the maximum number of operations in flight at once.
	// Values < 1 are treated as 1.
	BatchSize int

	// InterBatchDelay is the pause between consecutive groups. Not applied
	// after the final group.
	InterBatchDelay time.Duration

	// Governor, if set, paces each individual operation via Acquire before
	// the operation runs.
	Governor *pace.Governor
}

// Run partitions items into groups of at most opts.BatchSize, runs each
// group's operations concurrently, and returns one Outcome per item in input
// order. A failing operation never aborts its siblings or later groups.
//
// Cancellation is checked between groups only: once a group is launched it
// runs to completion, since external side effects cannot be rolled back. On
// cancellation the remaining items are returned with ctx.Err() set.
func Run[T, R any](ctx context.Context, items []T, opts Options, op func(context.Context, T) (R, error)) []Outcome[R] {
	size := opts.BatchSize
	if size < 1 {
		size = 1
	}

	results := make([]Outcome[R], len(items))
	for i := range results {
		results[i].Index = i
	}

	for start := 0; start < len(items); start += size {
		if start > 0 && opts.InterBatchDelay > 0 {
			if !sleep(ctx, opts.InterBatchDelay) {
				markCancelled(results[start:], ctx.Err())
				return results
			}
		}
		if ctx.Err() != nil {
			markCancelled(results[start:], ctx.Err())
			return results
		}

		end := min(start+size, len(items))

		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if opts.Governor != nil {
					if err := opts.Governor.Acquire(ctx); err != nil {
						results[i].Err = err
						return nil
					}
				}
				v, err := op(ctx, items[i])
				if err != nil {
					results[i].Err = err
					zap.L().Debug("batch: item failed",
						zap.Int("index", i),
						zap.Error(err),
					)
					return nil
				}
				results[i].Value = v
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}

func markCancelled[R any](out []Outcome[R], err error) {
	for i := range out {
		out[i].Err = err
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
