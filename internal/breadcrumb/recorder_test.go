package breadcrumb

import (
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/safereturn/internal/timeutil"
)

type captureSink struct {
	mu      sync.Mutex
	actions []Action
	points  []r3.Vector
}

func (c *captureSink) RecordAction(a Action, p r3.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, a)
	c.points = append(c.points, p)
}

func (c *captureSink) count(a Action) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, got := range c.actions {
		if got == a {
			n++
		}
	}
	return n
}

func newTestRecorder(t *testing.T, cfg Config) (*Recorder, *timeutil.MockClock, *captureSink) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	sink := &captureSink{}
	r, err := New(cfg, WithClock(clock), WithEventSink(sink))
	require.NoError(t, err)
	return r, clock, sink
}

// driveCleanup runs both background passes to completion. The mock clock
// is frozen, so each call finishes as much as there is to do.
func driveCleanup(t *testing.T, r *Recorder) {
	t.Helper()
	for i := 0; i < 1000 && !(r.simplify.complete && r.prune.complete); i++ {
		r.AdvanceSimplification()
		r.AdvancePruning()
	}
	require.True(t, r.simplify.complete, "simplifier did not complete")
	require.True(t, r.prune.complete, "pruner did not complete")
}

func TestNewRejectsDegenerateConfig(t *testing.T) {
	sink := &captureSink{}

	for _, cfg := range []Config{
		{}, // zero accuracy and points
		func() Config { c := DefaultConfig(); c.Accuracy = -1; return c }(),
		func() Config { c := DefaultConfig(); c.MaxPoints = 0; return c }(),
		func() Config { c := DefaultConfig(); c.MaxPoints = HardMaxPoints + 1; return c }(),
	} {
		_, err := New(cfg, WithEventSink(sink))
		require.Error(t, err)
	}
	assert.Equal(t, 4, sink.count(ActionDeactivatedInitFailed))
}

func TestResetWithInvalidPosition(t *testing.T) {
	r, _, sink := newTestRecorder(t, DefaultConfig())

	r.Reset(r3.Vector{}, false)

	assert.False(t, r.IsActive())
	assert.Equal(t, ReasonBadPosition, r.DeactivationReason())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, sink.count(ActionDeactivatedBadPosition))

	// Updates on an inactive recorder are ignored.
	r.Update(pt(10, 0, 0), true)
	assert.Equal(t, 0, r.Len())

	if _, ok := r.PopLast(); ok {
		t.Error("PopLast succeeded on an inactive recorder")
	}
}

func TestUpdateMinimumSpacing(t *testing.T) {
	r, _, sink := newTestRecorder(t, DefaultConfig()) // accuracy 2.0

	r.Reset(pt(0, 0, 0), true)
	require.Equal(t, 1, r.Len())

	// Every point spaced above the threshold is stored.
	for i := 1; i <= 5; i++ {
		r.Update(pt(float64(i)*2.5, 0, 0), true)
	}
	assert.Equal(t, 6, r.Len())

	// A point closer than the threshold never changes the stored length.
	r.Update(pt(13.5, 0, 0), true)
	assert.Equal(t, 6, r.Len())
	// Only true appends are reported; the reset starting point is not.
	assert.Equal(t, 5, sink.count(ActionPointAdd))
}

func TestBadPositionTimeoutDeactivates(t *testing.T) {
	r, clock, sink := newTestRecorder(t, DefaultConfig())

	r.Reset(pt(0, 0, 0), true)
	r.Update(pt(5, 0, 0), true)
	require.Equal(t, 2, r.Len())

	// Invalid fixes inside the timeout window are tolerated.
	clock.Advance(10 * time.Second)
	r.Update(pt(10, 0, 0), false)
	assert.True(t, r.IsActive())

	// Past the timeout the session shuts down for the flight.
	clock.Advance(6 * time.Second)
	r.Update(pt(10, 0, 0), false)
	assert.False(t, r.IsActive())
	assert.Equal(t, ReasonBadPosition, r.DeactivationReason())
	assert.Equal(t, 1, sink.count(ActionDeactivatedBadPosition))

	// Deactivation is one-way: a good fix does not revive the session.
	r.Update(pt(15, 0, 0), true)
	assert.False(t, r.IsActive())

	// Recorded points stay queryable for diagnostics.
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, pt(5, 0, 0), r.At(1))
}

func TestThoroughCleanupPolling(t *testing.T) {
	r, _, _ := newTestRecorder(t, DefaultConfig())

	r.Reset(pt(0, 0, 0), true)
	for _, p := range []r3.Vector{
		pt(10, 0, 0), pt(20, 0, 0), pt(20, 10, 0),
		pt(10, 10, 0), pt(10, 0.5, 0), pt(0, 3, 0),
	} {
		r.Update(p, true)
	}
	require.Equal(t, 7, r.Len())

	// Neither pass has run: not ready.
	assert.False(t, r.ThoroughCleanup())

	// One pass alone is not enough.
	for i := 0; i < 100 && !r.simplify.complete; i++ {
		r.AdvanceSimplification()
	}
	assert.False(t, r.ThoroughCleanup())

	driveCleanup(t, r)
	lenBefore := r.Len()
	require.True(t, r.ThoroughCleanup())

	// The out-and-back loop was cut out and the path compacted.
	assert.Less(t, r.Len(), lenBefore)
	assert.Equal(t, pt(0, 0, 0), r.At(0), "home point must survive")

	// Pop retraces the compacted path in reverse.
	last, ok := r.PopLast()
	require.True(t, ok)
	assert.Equal(t, pt(0, 3, 0), last)
}

func TestThoroughCleanupInactive(t *testing.T) {
	r, _, _ := newTestRecorder(t, DefaultConfig())
	r.Reset(r3.Vector{}, false)
	assert.False(t, r.ThoroughCleanup())
}

func TestRoutineCleanupKeepsPathBelowCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accuracy = 1.0
	cfg.MaxPoints = 150
	r, _, sink := newTestRecorder(t, cfg)

	r.Reset(pt(0, 0, 0), true)

	maxSeen := 0
	compacted := false
	for i := 1; i < 150; i++ {
		// The background task keeps up with the control loop in this
		// scenario: drive the simplifier to completion between updates.
		for k := 0; k < 500 && !r.simplify.complete; k++ {
			r.AdvanceSimplification()
		}
		prev := r.Len()

		// Nearly collinear: 2m spacing with a 10cm weave, inside the
		// 0.5m simplification tolerance.
		y := 0.1 * float64(i%2)
		r.Update(pt(float64(i)*2, y, 0), true)

		if r.Len() < prev {
			compacted = true
		}
		if r.Len() > maxSeen {
			maxSeen = r.Len()
		}
	}

	assert.True(t, r.IsActive(), "recorder deactivated on a simplifiable path")
	assert.True(t, compacted, "routine cleanup never compacted")
	assert.Less(t, maxSeen, 150, "path reached capacity")
	assert.Greater(t, sink.count(ActionPointSimplify), 0)
}

func TestRoutineCleanupFailureDeactivates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPoints = 12
	cfg.CleanupStartMargin = 2
	cfg.CleanupMinPoints = 10
	r, _, sink := newTestRecorder(t, cfg)

	r.Reset(pt(0, 0, 0), true)

	// An aggressive zig-zag: nothing is simplifiable or prunable, so once
	// the margin is reached cleanup cannot free the minimum and the
	// session dies rather than overflow.
	for i := 1; i < 14 && r.IsActive(); i++ {
		driveCleanup(t, r)
		y := 0.0
		if i%2 == 1 {
			y = 8.0
		}
		r.Update(pt(float64(i)*3, y, 0), true)
	}

	assert.False(t, r.IsActive())
	assert.Equal(t, ReasonCleanupFailed, r.DeactivationReason())
	assert.Equal(t, 1, sink.count(ActionDeactivatedCleanupFailed))
	assert.LessOrEqual(t, r.Len(), 12, "path overflowed")
}

func TestPrunedLoopCollapsesToMidpoint(t *testing.T) {
	r, _, sink := newTestRecorder(t, DefaultConfig())

	r.Reset(pt(0, 0, 0), true)
	for _, p := range []r3.Vector{
		pt(10, 0, 0), pt(20, 0, 0), pt(20, 10, 0),
		pt(10, 10, 0), pt(10, 0.5, 0), pt(0, 3, 0),
	} {
		r.Update(p, true)
	}

	driveCleanup(t, r)
	require.True(t, r.ThoroughCleanup())

	// The surviving path must pass within the pruning delta of the spot
	// where the return leg crossed the outbound leg.
	crossing := pt(10, 0.25, 0)
	closest := crossing.Distance(r.At(0))
	for i := 1; i < r.Len(); i++ {
		if d := crossing.Distance(r.At(i)); d < closest {
			closest = d
		}
	}
	assert.LessOrEqual(t, closest, 1.98)
	assert.Greater(t, sink.count(ActionPointPrune), 0)
}

func TestResetRecoversDeactivatedRecorder(t *testing.T) {
	r, _, _ := newTestRecorder(t, DefaultConfig())

	r.Reset(r3.Vector{}, false)
	require.False(t, r.IsActive())

	r.Reset(pt(1, 1, 1), true)
	assert.True(t, r.IsActive())
	assert.Equal(t, ReasonNone, r.DeactivationReason())
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentStepAndUpdate(t *testing.T) {
	// The mutex discipline: updates and background steps from different
	// goroutines must not race (run with -race).
	cfg := DefaultConfig()
	cfg.Accuracy = 1.0
	r, err := New(cfg, WithEventSink(NopSink{}))
	require.NoError(t, err)

	r.Reset(pt(0, 0, 0), true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			r.AdvanceSimplification()
			r.AdvancePruning()
		}
	}()

	for i := 1; i <= 100; i++ {
		y := 0.1 * float64(i%2)
		r.Update(pt(float64(i)*2, y, 0), true)
	}
	<-done

	assert.True(t, r.IsActive())
	assert.Greater(t, r.Len(), 0)
}

func TestPopLastInvalidatesSuspendedPasses(t *testing.T) {
	// A pass suspended mid-budget holds spans indexed against the current
	// path length. Pops during the return journey shorten the path, so
	// resuming without a restart would read past the end.
	r, clock, _ := newTestRecorder(t, DefaultConfig())

	r.Reset(pt(0, 0, 0), true)
	for i := 1; i < 12; i++ {
		y := 5.0 * float64(i%2)
		r.Update(pt(float64(i)*3, y, 0), true)
	}
	require.Equal(t, 12, r.Len())

	// Each Now/Since call consumes 150µs of mock time against the 200µs
	// budget, suspending the simplifier with spans still on its stack.
	clock.AutoAdvance(150 * time.Microsecond)
	r.AdvanceSimplification()
	require.False(t, r.simplify.complete, "pass completed within a single tight budget")

	for i := 0; i < 8; i++ {
		_, ok := r.PopLast()
		require.True(t, ok, "pop %d", i)
	}
	require.Equal(t, 4, r.Len())

	// Resuming must recompute against the shortened path.
	r.AdvanceSimplification()
	r.AdvancePruning()

	driveCleanup(t, r)
	assert.True(t, r.ThoroughCleanup())
	assert.Equal(t, 4, r.Len())
}

func TestUpdateReseedsFullyConsumedPath(t *testing.T) {
	r, _, sink := newTestRecorder(t, DefaultConfig())

	r.Reset(pt(0, 0, 0), true)
	_, ok := r.PopLast()
	require.True(t, ok)
	require.Equal(t, 0, r.Len())
	require.True(t, r.IsActive())

	// The next good fix starts a fresh path, like a reset would, so the
	// seed point reports no add event.
	r.Update(pt(5, 0, 0), true)
	require.Equal(t, 1, r.Len())
	assert.Equal(t, pt(5, 0, 0), r.At(0))
	assert.Equal(t, 0, sink.count(ActionPointAdd))

	r.Update(pt(10, 0, 0), true)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, sink.count(ActionPointAdd))
}
