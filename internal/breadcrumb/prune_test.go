package breadcrumb

import (
	"testing"
	"time"

	"github.com/driftline/safereturn/internal/timeutil"
)

func drivePruner(t *testing.T, p *pruner, path *Path, delta float64) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	for i := 0; i < 1000 && !p.complete; i++ {
		p.step(path, delta, time.Millisecond, clock)
	}
	if !p.complete {
		t.Fatal("pruner did not complete")
	}
}

// outAndBackPath travels east along y=0, loops up and around, and comes
// back within half a meter of its own outbound leg.
func outAndBackPath() *Path {
	p := newPath(16)
	p.Append(pt(0, 0, 0))
	p.Append(pt(10, 0, 0))
	p.Append(pt(20, 0, 0))
	p.Append(pt(20, 10, 0))
	p.Append(pt(10, 10, 0))
	p.Append(pt(10, 0.5, 0)) // back alongside the outbound leg
	p.Append(pt(0, 3, 0))
	return p
}

func TestPrunerDetectsLoop(t *testing.T) {
	path := outAndBackPath()
	pr := newPruner(4)

	drivePruner(t, pr, path, 1.98)

	if len(pr.loops) == 0 {
		t.Fatal("no loop detected on an out-and-back path")
	}
	l := pr.loops[0]
	if l.end <= l.start {
		t.Fatalf("loop indices inverted: start=%d end=%d", l.start, l.end)
	}

	// Segment (0,1) and segment (4,5) pass within 0.5m around (10, 0);
	// the recorded midpoint must lie within the pruning delta of that
	// crossing region.
	crossing := pt(10, 0.25, 0)
	if d := l.mid.Distance(crossing); d > 1.98 {
		t.Errorf("midpoint %v is %vm from the crossing, want <= delta", l.mid, d)
	}
}

func TestPrunerNeverComparesAdjacentSegments(t *testing.T) {
	// A tight switchback: every consecutive segment pair touches at its
	// shared point, but nothing non-adjacent comes close.
	path := newPath(8)
	path.Append(pt(0, 0, 0))
	path.Append(pt(10, 0, 0))
	path.Append(pt(10, 10, 0))
	path.Append(pt(20, 10, 0))
	path.Append(pt(20, 20, 0))
	pr := newPruner(4)

	drivePruner(t, pr, path, 1.98)

	if len(pr.loops) != 0 {
		t.Fatalf("recorded %d loops from touching adjacent segments", len(pr.loops))
	}
}

func TestPrunerEmptyInteriorLoopNotRecorded(t *testing.T) {
	// Segments (0,1) and (2,3) genuinely cross, but only the single point
	// between them could be replaced, reclaiming nothing. Such a loop is
	// never reported.
	path := newPath(8)
	path.Append(pt(0, 0, 0))
	path.Append(pt(3, 0, 0))
	path.Append(pt(2, 2, 0))
	path.Append(pt(2, -2, 0))
	pr := newPruner(4)

	drivePruner(t, pr, path, 1.98)

	for _, l := range pr.loops {
		if l.end == l.start+1 {
			t.Fatalf("recorded a loop with empty interior: start=%d end=%d", l.start, l.end)
		}
	}
}

func TestPrunerBufferFullTreatedAsComplete(t *testing.T) {
	path := outAndBackPath()
	pr := newPruner(1)

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	for i := 0; i < 1000 && !pr.complete; i++ {
		pr.step(path, 1.98, time.Millisecond, clock)
	}

	if !pr.complete {
		t.Fatal("full loop buffer did not complete the pass")
	}
	if len(pr.loops) > 1 {
		t.Fatalf("recorded %d loops into a buffer of 1", len(pr.loops))
	}
}

func TestPrunerNestedLoopsSuppressed(t *testing.T) {
	// The return leg passes close to two different outbound segments. The
	// minJ watermark must keep later detections from nesting inside the
	// first: recorded end indices never decrease.
	path := newPath(16)
	path.Append(pt(0, 0, 0))
	path.Append(pt(10, 0, 0))
	path.Append(pt(20, 0, 0))
	path.Append(pt(30, 0, 0))
	path.Append(pt(30, 10, 0))
	path.Append(pt(20, 0.5, 0))
	path.Append(pt(10, 0.3, 0))
	path.Append(pt(0, 0.6, 0))
	pr := newPruner(8)

	drivePruner(t, pr, path, 1.98)

	if len(pr.loops) == 0 {
		t.Fatal("no loops detected")
	}
	lastEnd := 0
	for _, l := range pr.loops {
		if l.end < lastEnd {
			t.Fatalf("loop ending at %d nests inside an earlier loop ending at %d", l.end, lastEnd)
		}
		lastEnd = l.end
	}
}

func TestPrunerTrivialSmallPathCompletes(t *testing.T) {
	path := newPath(8)
	path.Append(pt(0, 0, 0))
	path.Append(pt(10, 0, 0))
	path.Append(pt(20, 0, 0))
	pr := newPruner(4)

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	pr.step(path, 1.98, time.Millisecond, clock)

	if !pr.complete {
		t.Fatal("three-point path did not complete immediately")
	}
	if len(pr.loops) != 0 {
		t.Fatal("loops recorded on a three-point path")
	}
}

func TestPrunerBudgetYieldsAndResumes(t *testing.T) {
	path := outAndBackPath()
	pr := newPruner(4)

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	clock.AutoAdvance(150 * time.Microsecond)

	pr.step(path, 1.98, 200*time.Microsecond, clock)
	if pr.complete {
		t.Fatal("scan completed within a single tight budget")
	}

	calls := 1
	for ; calls < 500 && !pr.complete; calls++ {
		pr.step(path, 1.98, 200*time.Microsecond, clock)
	}
	if !pr.complete {
		t.Fatalf("scan did not complete after %d budgeted calls", calls)
	}
	if len(pr.loops) == 0 {
		t.Error("budgeted stepping lost the loop detection")
	}
}

func TestPrunerRestartClearsDetections(t *testing.T) {
	path := outAndBackPath()
	pr := newPruner(4)
	drivePruner(t, pr, path, 1.98)
	if len(pr.loops) == 0 {
		t.Fatal("no loops detected")
	}

	pr.restart()
	if pr.complete {
		t.Fatal("restart left the pass complete")
	}
	if len(pr.loops) != 0 {
		t.Fatal("restart kept stale loop records")
	}
}
