package breadcrumb

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/driftline/safereturn/internal/geo"
	"github.com/driftline/safereturn/internal/timeutil"
)

// loop is one detected prunable loop: the sub-path strictly between start
// and end can be replaced by the single point mid.
type loop struct {
	start, end int
	mid        r3.Vector
}

// pruner is the anytime loop detector. It compares the segment (i, i+1)
// against every later segment (j, j+1) with j >= i+2; two segments sharing
// an endpoint trivially touch and are never compared. Detected loops go
// into a bounded buffer and the path is never altered between restarts.
type pruner struct {
	// loops holds detections in path order. When it fills, detection
	// stops and the pass is treated as complete: nothing further could be
	// recorded anyway.
	loops []loop

	// i and j form the resumable scan cursor over segment pairs.
	i, j int

	// minJ suppresses detection of a loop nested inside a loop already
	// found starting at or before i.
	minJ int

	// cleanUntil floors the cursor on restart; only ever lowered back to
	// zero by reset, since a new segment must be compared against every
	// earlier one.
	cleanUntil int

	complete bool
}

func newPruner(bufferCap int) *pruner {
	return &pruner{
		loops: make([]loop, 0, bufferCap),
	}
}

// restart invalidates the running pass after a point is appended.
func (p *pruner) restart() {
	p.complete = false
	p.i = p.cleanUntil
	p.j = 0
	p.minJ = p.cleanUntil + 2
	p.loops = p.loops[:0]
}

// reset fully invalidates the pruner, as required after any compaction or
// path reset.
func (p *pruner) reset() {
	p.cleanUntil = 0
	p.restart()
}

// reclaimable reports how many points pruning every recorded loop would
// remove: each loop's interior collapses to exactly one midpoint.
func (p *pruner) reclaimable() int {
	total := 0
	for _, l := range p.loops {
		total += l.end - l.start - 1
	}
	return total
}

// step advances the scan over path within the given time budget.
func (p *pruner) step(path *Path, delta float64, budget time.Duration, clock timeutil.Clock) {
	if p.complete {
		return
	}
	n := path.Len()
	if n < 4 {
		// Fewer than three segments: no non-adjacent pair exists.
		p.complete = true
		return
	}

	start := clock.Now()
	for p.i < n-2 {
		if p.j < p.i+2 {
			p.j = p.i + 2
		}
		if p.j < p.minJ {
			p.j = p.minJ
		}
		for p.j < n-1 {
			if clock.Since(start) > budget {
				return
			}
			dist, mid := geo.SegmentDistance(path.At(p.i), path.At(p.i+1), path.At(p.j), path.At(p.j+1))
			if dist <= delta {
				p.minJ = p.j
				// A loop between straight-adjacent segments (j == i+2)
				// has an empty interior and reclaims nothing; only real
				// interiors are worth a buffer slot.
				if p.j > p.i+2 {
					if len(p.loops) == cap(p.loops) {
						// Buffer full: no further loop could be recorded,
						// so the pass is complete with what it has.
						p.complete = true
						return
					}
					p.loops = append(p.loops, loop{start: p.i + 1, end: p.j, mid: mid})
				}
			}
			p.j++
		}
		p.i++
		p.j = 0
	}
	p.complete = true
}
