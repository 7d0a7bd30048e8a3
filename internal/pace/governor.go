// Package pace provides the rate governor that spaces calls to external
// collaborators. It is a pacing primitive, not an admission gate: Acquire
// always eventually returns unless the context is cancelled.
package pace

import (
	"context"
	"sync"
	"time"
)

// Governor enforces a minimum spacing between acquisitions and an optional
// rolling quota: no more than Quota acquisitions complete within any trailing
// Window. Concurrent callers serialize through a single mutex; the mutex's
// starvation mode keeps long waiters near arrival order, but grant order is
// not strictly FIFO. The spacing and quota invariants hold for any order, and
// a burst after a long idle period still pays the full spacing between grants.
type Governor struct {
	mu sync.Mutex

	minInterval time.Duration
	window      time.Duration
	quota       int

	last   time.Time
	grants []time.Time

	// now is swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// New creates a Governor. A zero minInterval disables spacing; a zero quota
// or window disables the rolling-quota constraint.
func New(minInterval time.Duration, quota int, window time.Duration, opts ...Option) *Governor {
	g := &Governor{
		minInterval: minInterval,
		window:      window,
		quota:       quota,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Acquire blocks until granting would violate neither constraint, then
// records the grant. The wait is computed exactly:
//
//	max(0, minInterval-elapsedSinceLast, oldestRelevantGrant+window-now)
//
// Returns the context error if ctx is cancelled while waiting.
func (g *Governor) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	var wait time.Duration
	if g.minInterval > 0 && !g.last.IsZero() {
		if d := g.minInterval - now.Sub(g.last); d > wait {
			wait = d
		}
	}

	if g.quota > 0 && g.window > 0 {
		g.prune(now)
		if len(g.grants) >= g.quota {
			// The grant opening the next slot is the one that falls out of
			// the trailing window first.
			windowStart := g.grants[len(g.grants)-g.quota]
			if d := windowStart.Add(g.window).Sub(now); d > wait {
				wait = d
			}
		}
	}

	if wait > 0 {
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}

	granted := g.now()
	g.last = granted
	if g.quota > 0 && g.window > 0 {
		g.grants = append(g.grants, granted)
	}
	return nil
}

// AcquireWithinQuota behaves like Acquire for the spacing constraint but
// never waits on the rolling quota: when the quota is exhausted it returns
// granted=false immediately. The delivery stage uses this to mark remaining
// records unattempted instead of stalling until the window frees.
func (g *Governor) AcquireWithinQuota(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.quota > 0 && g.window > 0 {
		g.prune(now)
		if len(g.grants) >= g.quota {
			return false, nil
		}
	}

	if g.minInterval > 0 && !g.last.IsZero() {
		if d := g.minInterval - now.Sub(g.last); d > 0 {
			if err := g.sleep(ctx, d); err != nil {
				return false, err
			}
		}
	}

	granted := g.now()
	g.last = granted
	if g.quota > 0 && g.window > 0 {
		g.grants = append(g.grants, granted)
	}
	return true, nil
}

// WouldExceedQuota reports whether the next acquisition would have to wait on
// the rolling quota. The delivery stage uses this to stop early instead of
// stalling for the rest of the window.
func (g *Governor) WouldExceedQuota() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.quota <= 0 || g.window <= 0 {
		return false
	}
	g.prune(g.now())
	return len(g.grants) >= g.quota
}

// prune drops grant timestamps that no longer fall in the trailing window.
// Caller must hold g.mu.
func (g *Governor) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.grants) && !g.grants[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.grants = append(g.grants[:0], g.grants[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
