// Package sched drives the recorder's incremental cleanup passes on a
// fixed cadence, standing in for the flight controller's scheduler slots.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/driftline/safereturn/internal/monitoring"
	"github.com/driftline/safereturn/internal/timeutil"
)

// Cleaner is the set of recorder operations the runner drives. Each call
// is internally budgeted, so invoking them on every tick is cheap.
type Cleaner interface {
	AdvanceSimplification()
	AdvancePruning()
}

// Runner alternates simplification and pruning work on a ticker. It is
// context-aware and safe to Stop from another goroutine.
type Runner struct {
	cleaner  Cleaner
	clock    timeutil.Clock
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRunner creates a runner ticking at interval. A nil clock means the
// real clock.
func NewRunner(cleaner Cleaner, interval time.Duration, clock timeutil.Clock) *Runner {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{
		cleaner:  cleaner,
		clock:    clock,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run blocks until the context is cancelled or Stop is called. Returns nil
// on clean shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil // already running
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	defer func() {
		close(r.doneCh)
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if r.interval <= 0 {
		monitoring.Logf("sched: interval is zero or negative, not starting")
		return nil
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	monitoring.Debugf("sched: runner started, interval=%v", r.interval)

	// Alternate the passes so neither starves the other within the
	// recorder's per-call time budgets.
	simplify := true
	for {
		select {
		case <-ctx.Done():
			monitoring.Debugf("sched: stopping on context cancellation")
			return nil
		case <-r.stopCh:
			monitoring.Debugf("sched: stopping on Stop()")
			return nil
		case <-ticker.C():
			if simplify {
				r.cleaner.AdvanceSimplification()
			} else {
				r.cleaner.AdvancePruning()
			}
			simplify = !simplify
		}
	}
}

// Stop requests the runner to stop and waits for Run to return. Safe to
// call multiple times.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	doneCh := r.doneCh
	r.mu.Unlock()

	<-doneCh
}
