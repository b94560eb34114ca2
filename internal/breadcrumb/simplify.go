package breadcrumb

import (
	"time"

	"github.com/driftline/safereturn/internal/geo"
	"github.com/driftline/safereturn/internal/timeutil"
)

// span is one unresolved sub-range of the path awaiting a
// Ramer-Douglas-Peucker split decision.
type span struct {
	start, end int
}

// simplifier is the anytime Ramer-Douglas-Peucker pass. It only marks
// points in its keep-set; the path itself is never altered between
// restarts. One call to step runs until its time budget expires or the
// work stack drains, whichever comes first, and can be resumed across any
// number of calls.
type simplifier struct {
	// keep holds one bit per path index; a cleared bit means the point is
	// a candidate for removal.
	keep bitset

	// stack is the bounded to-do list of unresolved spans. If a split
	// would overflow it the pass gives up and declares completion,
	// accepting the reductions found so far.
	stack []span

	// cleanUntil is the watermark below which decisions from an earlier
	// completed pass are final; spans ending at or below it are skipped
	// and their keep bits survive restarts.
	cleanUntil int

	// seedEnd is the last path index covered by the current pass.
	seedEnd int

	complete bool
}

func newSimplifier(pathCap, stackCap int) *simplifier {
	s := &simplifier{
		keep:  newBitset(pathCap),
		stack: make([]span, 0, stackCap),
	}
	s.keep.setAll()
	return s
}

// restart invalidates the running pass after a point is appended. Keep
// bits below the watermark are already final and are retained.
func (s *simplifier) restart() {
	s.complete = false
	s.stack = s.stack[:0]
	s.keep.setFrom(s.cleanUntil)
}

// reset fully invalidates the simplifier, as required after any compaction
// or path reset: every decision referred to pre-compaction indices.
func (s *simplifier) reset() {
	s.cleanUntil = 0
	s.keep.setAll()
	s.restart()
}

// removableCount reports how many of the first n points are currently
// marked removable. Valid at any time: partial passes hold valid partial
// results.
func (s *simplifier) removableCount(n int) int {
	return s.keep.countClear(n)
}

// step advances the pass over path within the given time budget.
func (s *simplifier) step(path *Path, epsilon float64, budget time.Duration, clock timeutil.Clock) {
	if s.complete {
		return
	}
	n := path.Len()
	if n < 3 {
		// Nothing between the endpoints to simplify.
		s.complete = true
		return
	}

	if len(s.stack) == 0 {
		s.stack = append(s.stack, span{0, n - 1})
		s.seedEnd = n - 1
	}

	start := clock.Now()
	for len(s.stack) > 0 {
		if clock.Since(start) > budget {
			return
		}

		sp := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]

		// Already resolved by an earlier pass.
		if sp.end <= s.cleanUntil {
			continue
		}

		maxDist := 0.0
		maxIdx := sp.start
		for i := sp.start + 1; i < sp.end; i++ {
			if !s.keep.get(i) {
				continue
			}
			d := geo.PointLineDistance(path.At(i), path.At(sp.start), path.At(sp.end))
			if d > maxDist {
				maxDist = d
				maxIdx = i
			}
		}

		if maxDist > epsilon {
			// The farthest point survives; resolve both halves.
			if len(s.stack)+2 > cap(s.stack) {
				// To-do list full: give up on this pass rather than
				// grow; the reductions found so far stand.
				s.complete = true
				return
			}
			s.stack = append(s.stack, span{sp.start, maxIdx}, span{maxIdx, sp.end})
		} else {
			for i := sp.start + 1; i < sp.end; i++ {
				s.keep.clear(i)
			}
		}
	}

	s.complete = true
	if s.seedEnd > s.cleanUntil {
		s.cleanUntil = s.seedEnd
	}
}
