package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/pace"
)

func TestRun_AllSucceed(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	results := Run(context.Background(), items, Options{BatchSize: 2}, func(_ context.Context, n int) (int, error) {
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.False(t, r.Failed())
		assert.Equal(t, items[i]*10, r.Value)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}
	failing := map[int]bool{1: true, 4: true, 5: true}

	results := Run(context.Background(), items, Options{BatchSize: 3}, func(_ context.Context, n int) (string, error) {
		if failing[n] {
			return "", eris.Errorf("item %d unreachable", n)
		}
		return "ok", nil
	})

	require.Len(t, results, len(items))
	var failed int
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		if failing[i] {
			failed++
			assert.True(t, r.Failed())
			assert.Contains(t, r.Err.Error(), "unreachable")
		} else {
			assert.False(t, r.Failed())
			assert.Equal(t, "ok", r.Value)
		}
	}
	assert.Equal(t, len(failing), failed)
}

func TestRun_PreservesInputOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}

	// Earlier items finish later; results must still come back in input order.
	results := Run(context.Background(), items, Options{BatchSize: 4}, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(8-n) * time.Millisecond)
		return n, nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Value)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var current, peak atomic.Int64

	Run(context.Background(), make([]int, 20), Options{BatchSize: 4}, func(_ context.Context, _ int) (struct{}, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int64(4))
}

func TestRun_InterBatchDelay(t *testing.T) {
	items := make([]int, 6)

	start := time.Now()
	Run(context.Background(), items, Options{BatchSize: 2, InterBatchDelay: 15 * time.Millisecond}, func(_ context.Context, _ int) (struct{}, error) {
		return struct{}{}, nil
	})

	// Three groups, two delays between them.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRun_GovernorPacesOperations(t *testing.T) {
	gov := pace.New(10*time.Millisecond, 0, 0)

	start := time.Now()
	results := Run(context.Background(), make([]int, 4), Options{BatchSize: 4, Governor: gov}, func(_ context.Context, _ int) (struct{}, error) {
		return struct{}{}, nil
	})

	require.Len(t, results, 4)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRun_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var launched atomic.Int64
	results := Run(ctx, make([]int, 6), Options{BatchSize: 2, InterBatchDelay: 20 * time.Millisecond}, func(_ context.Context, _ int) (struct{}, error) {
		launched.Add(1)
		cancel()
		return struct{}{}, nil
	})

	require.Len(t, results, 6)
	// First group runs to completion; the rest are marked with the context error.
	assert.EqualValues(t, 2, launched.Load())
	for _, r := range results[2:] {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	for _, r := range results[:2] {
		assert.NoError(t, r.Err)
	}
}

func TestRun_LaunchedBatchRunsToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	completed := 0
	results := Run(ctx, make([]int, 3), Options{BatchSize: 3}, func(_ context.Context, _ int) (struct{}, error) {
		cancel() // cancel mid-batch
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		completed++
		mu.Unlock()
		return struct{}{}, nil
	})

	assert.Equal(t, 3, completed)
	for _, r := range results {
		assert.False(t, r.Failed())
	}
}

func TestRun_EmptyInput(t *testing.T) {
	results := Run(context.Background(), nil, Options{BatchSize: 5}, func(_ context.Context, _ int) (int, error) {
		t.Fatal("operation must not run")
		return 0, nil
	})
	assert.Empty(t, results)
}

func TestRun_ZeroBatchSizeRunsSequentially(t *testing.T) {
	results := Run(context.Background(), []int{1, 2}, Options{}, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Value)
	assert.Equal(t, 2, results[1].Value)
}
