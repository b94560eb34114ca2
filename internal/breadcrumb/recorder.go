package breadcrumb

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/driftline/safereturn/internal/monitoring"
	"github.com/driftline/safereturn/internal/timeutil"
)

// DeactivationReason explains why a recorder stopped recording. All
// deactivations are one-way: the recorder stays inactive until the next
// explicit Reset.
type DeactivationReason uint8

const (
	// ReasonNone means the recorder has not been deactivated.
	ReasonNone DeactivationReason = iota
	// ReasonBadPosition means no trusted position fix arrived for longer
	// than the configured timeout, or the session started without one.
	ReasonBadPosition
	// ReasonCleanupFailed means routine cleanup could not reclaim the
	// minimum number of points; recording more would overflow the path.
	ReasonCleanupFailed
)

// String returns a short reason name for logs.
func (r DeactivationReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonBadPosition:
		return "bad_position"
	case ReasonCleanupFailed:
		return "cleanup_failed"
	default:
		return "unknown"
	}
}

// Recorder owns the breadcrumb path and both cleanup passes. One instance
// serves one vehicle; a single mutex guards every operation, so Update and
// the cleanup steps may run on different goroutines.
type Recorder struct {
	mu sync.Mutex

	cfg   Config
	clock timeutil.Clock
	sink  EventSink

	path     *Path
	simplify *simplifier
	prune    *pruner

	active      bool
	reason      DeactivationReason
	lastGoodFix time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock substitutes the time source, typically a timeutil.MockClock in
// tests.
func WithClock(c timeutil.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithEventSink installs the external event recording collaborator.
func WithEventSink(s EventSink) Option {
	return func(r *Recorder) { r.sink = s }
}

// New builds a Recorder. A rejected configuration is a one-time activation
// failure: the event is reported through the sink (if any) and an error is
// returned. The recorder starts inactive; call Reset at arming.
func New(cfg Config, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		cfg:   cfg,
		clock: timeutil.RealClock{},
		sink:  NopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := cfg.Validate(); err != nil {
		r.sink.RecordAction(ActionDeactivatedInitFailed, r3.Vector{})
		monitoring.Logf("breadcrumb recorder deactivated: init failed: %v", err)
		return nil, fmt.Errorf("breadcrumb config: %w", err)
	}

	r.path = newPath(cfg.MaxPoints)
	r.simplify = newSimplifier(cfg.MaxPoints, cfg.simplifyStackCap())
	r.prune = newPruner(cfg.loopBufferCap())
	return r, nil
}

// Reset clears the path and starts a new recording session. Call it as
// part of the arming procedure. If valid is false the session is marked
// inactive: a flight that never had a trustworthy starting fix must not be
// guided home along its path.
func (r *Recorder) Reset(pos r3.Vector, valid bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.simplify.reset()
	r.prune.reset()
	r.path.Reset(pos, valid)

	if !valid {
		r.active = false
		r.reason = ReasonBadPosition
		r.sink.RecordAction(ActionDeactivatedBadPosition, r3.Vector{})
		monitoring.Logf("breadcrumb recorder deactivated: bad position at reset")
		return
	}

	r.active = true
	r.reason = ReasonNone
	r.lastGoodFix = r.clock.Now()
}

// Update feeds the recorder the current position. Call it a few times per
// second regardless of vehicle mode. The point is appended only once the
// vehicle has moved at least the configured accuracy from the last stored
// point; routine cleanup runs first when free capacity is low, so a
// successful update can never overflow the path.
func (r *Recorder) Update(pos r3.Vector, valid bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}

	if !valid {
		if r.clock.Since(r.lastGoodFix) > r.cfg.BadPositionTimeout {
			r.deactivate(ReasonBadPosition, ActionDeactivatedBadPosition)
		}
		return
	}
	r.lastGoodFix = r.clock.Now()

	// Pops may have consumed the whole path; the next good fix seeds a
	// fresh one, the same way a reset would.
	if r.path.Len() == 0 {
		r.path.Reset(pos, true)
		r.simplify.reset()
		r.prune.reset()
		return
	}

	// Clean up before appending: an append restarts both passes, so there
	// would be nothing usable to clean immediately after.
	if !r.routineCleanup() {
		r.deactivate(ReasonCleanupFailed, ActionDeactivatedCleanupFailed)
		return
	}

	if pos.Distance(r.path.Last()) <= r.cfg.Accuracy {
		return
	}
	if !r.path.Append(pos) {
		// Unreachable while the cleanup margin holds; treated as the
		// same systemic failure as an unsuccessful cleanup.
		r.deactivate(ReasonCleanupFailed, ActionDeactivatedCleanupFailed)
		return
	}
	r.sink.RecordAction(ActionPointAdd, pos)

	// The path changed: results computed so far no longer cover it.
	r.simplify.restart()
	r.prune.restart()
}

// IsActive reports whether the recorder is usable. It becomes false if the
// flight started without a position fix, the fix went bad for too long, or
// the path could no longer be cleaned up.
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// DeactivationReason returns why the recorder went inactive, or ReasonNone.
func (r *Recorder) DeactivationReason() DeactivationReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Len returns the number of points on the path. Points stay queryable
// after a deactivation for diagnostics.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path.Len()
}

// At returns the point at index i.
func (r *Recorder) At(i int) r3.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path.At(i)
}

// PopLast removes and returns the most recent point, used to retrace the
// path home. Returns false when inactive or empty.
func (r *Recorder) PopLast() (r3.Vector, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return r3.Vector{}, false
	}
	pt, ok := r.path.PopLast()
	if ok {
		// The path changed: spans and loops found so far index into a
		// length that no longer exists.
		r.simplify.reset()
		r.prune.reset()
	}
	return pt, ok
}

// ThoroughCleanup applies every simplification and prunes every detected
// loop, leaving a minimal path ready for the return journey. It requires
// both background passes to have completed; until then it returns false
// and must be polled again. Callers should expect at most a few seconds'
// pause before the return starts.
func (r *Recorder) ThoroughCleanup() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return false
	}
	if !r.simplify.complete || !r.prune.complete {
		return false
	}

	r.applySimplification()
	r.applyLoops(0)
	r.compactAndReset()
	return true
}

// AdvanceSimplification drives the simplifier forward within its time
// budget. Run it from a periodic background task.
func (r *Recorder) AdvanceSimplification() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	r.simplify.step(r.path, r.cfg.simplifyEpsilon(), r.cfg.SimplifyBudget, r.clock)
}

// AdvancePruning drives the loop pruner forward within its time budget.
// Run it from a periodic background task.
func (r *Recorder) AdvancePruning() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	r.prune.step(r.path, r.cfg.pruneDelta(), r.cfg.PruneBudget, r.clock)
}

// routineCleanup compacts the path using whatever the background passes
// have found so far, but only once free capacity has dropped to the
// configured margin, and only if an option reclaims at least the minimum
// worth compacting for. Returns false when nothing can: a true systemic
// condition that deactivates recording for the rest of the flight.
func (r *Recorder) routineCleanup() bool {
	headroom := r.path.Cap() - r.cfg.CleanupStartMargin
	if headroom < 0 {
		headroom = 0
	}
	if r.path.Len() < headroom {
		return true
	}

	simplifiable := r.simplify.removableCount(r.path.Len())
	if simplifiable >= r.cfg.CleanupMinPoints {
		r.applySimplification()
		r.compactAndReset()
		return true
	}

	prunable := r.prune.reclaimable()
	if prunable >= r.cfg.CleanupMinPoints {
		r.applyLoops(r.cfg.CleanupMinPoints)
		r.compactAndReset()
		return true
	}

	if simplifiable+prunable >= r.cfg.CleanupMinPoints {
		r.applySimplification()
		r.applyLoops(r.cfg.CleanupMinPoints)
		r.compactAndReset()
		return true
	}

	return false
}

// applySimplification marks every point the simplifier found removable.
// Point 0 is never marked.
func (r *Recorder) applySimplification() {
	for i := 1; i < r.path.Len(); i++ {
		if r.simplify.keep.get(i) {
			continue
		}
		if r.path.MarkRemoved(i) {
			r.sink.RecordAction(ActionPointSimplify, r.path.At(i))
		}
	}
}

// applyLoops marks the interiors of recorded loops for removal, writing
// each loop's midpoint back as the single surviving point. Stops once
// maxRemove points have been claimed; maxRemove <= 0 prunes every loop.
func (r *Recorder) applyLoops(maxRemove int) {
	removed := 0
	for _, l := range r.prune.loops {
		for j := l.start; j < l.end; j++ {
			if r.path.MarkRemoved(j) {
				r.sink.RecordAction(ActionPointPrune, r.path.At(j))
			}
		}
		mid := (l.start + l.end) / 2
		r.path.SetAt(mid, l.mid)
		r.path.Unmark(mid)

		removed += l.end - l.start - 1
		if maxRemove > 0 && removed >= maxRemove {
			return
		}
	}
}

// compactAndReset removes marked points and fully resets both passes:
// their results referred to pre-compaction indices.
func (r *Recorder) compactAndReset() {
	r.path.Compact()
	r.simplify.reset()
	r.prune.reset()
}

func (r *Recorder) deactivate(reason DeactivationReason, action Action) {
	r.active = false
	r.reason = reason
	r.sink.RecordAction(action, r3.Vector{})
	monitoring.Logf("breadcrumb recorder deactivated: %s", reason)
}
