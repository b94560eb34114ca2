package breadcrumb

import "github.com/golang/geo/r3"

// Path is a fixed-capacity ordered sequence of breadcrumb points, meters in
// a local NED frame. Point 0 is the recorded start reference and is never
// removed by compaction.
//
// Removal is tracked in a side-channel mark set rather than by writing a
// sentinel coordinate, so a vehicle flying back over the local origin can
// never have a real point confused with a removed one.
type Path struct {
	pts     []r3.Vector
	removed bitset
}

func newPath(capacity int) *Path {
	return &Path{
		pts:     make([]r3.Vector, 0, capacity),
		removed: newBitset(capacity),
	}
}

// Len returns the number of stored points.
func (p *Path) Len() int { return len(p.pts) }

// Cap returns the fixed capacity.
func (p *Path) Cap() int { return cap(p.pts) }

// At returns the point at index i. i must be in [0, Len()).
func (p *Path) At(i int) r3.Vector { return p.pts[i] }

// Last returns the most recently stored point. The path must be non-empty.
func (p *Path) Last() r3.Vector { return p.pts[len(p.pts)-1] }

// Append stores a point. Returns false when the path is full; the caller
// must have made room via cleanup before appending.
func (p *Path) Append(pt r3.Vector) bool {
	if len(p.pts) == cap(p.pts) {
		return false
	}
	p.pts = append(p.pts, pt)
	return true
}

// Reset clears the store. If valid is true the single starting point is
// stored; otherwise the path is left empty.
func (p *Path) Reset(start r3.Vector, valid bool) {
	p.pts = p.pts[:0]
	p.removed.clearAll()
	if valid {
		p.pts = append(p.pts, start)
	}
}

// PopLast removes and returns the most recently stored point. Returns
// false when the path is empty.
func (p *Path) PopLast() (r3.Vector, bool) {
	if len(p.pts) == 0 {
		return r3.Vector{}, false
	}
	last := p.pts[len(p.pts)-1]
	p.pts = p.pts[:len(p.pts)-1]
	return last, true
}

// MarkRemoved flags the point at index i for removal by the next Compact.
// Marking point 0 is a no-op. Returns true if the point was newly marked.
func (p *Path) MarkRemoved(i int) bool {
	if i <= 0 || i >= len(p.pts) {
		return false
	}
	if p.removed.get(i) {
		return false
	}
	p.removed.set(i)
	return true
}

// Unmark clears a removal flag, keeping the point through the next Compact.
func (p *Path) Unmark(i int) {
	p.removed.clear(i)
}

// SetAt overwrites the point at index i. i must be in [0, Len()).
func (p *Path) SetAt(i int, pt r3.Vector) {
	p.pts[i] = pt
}

// Compact removes every marked point, renumbering the survivors
// contiguously. Point 0 always survives. Returns the number of points
// removed. All marks are cleared: after a compaction the cleanup
// algorithms' results refer to stale indices and must be recomputed.
func (p *Path) Compact() int {
	if len(p.pts) == 0 {
		return 0
	}
	dest := 0
	for src := 1; src < len(p.pts); src++ {
		if p.removed.get(src) {
			continue
		}
		dest++
		p.pts[dest] = p.pts[src]
	}
	removedCount := len(p.pts) - (dest + 1)
	p.pts = p.pts[:dest+1]
	p.removed.clearAll()
	return removedCount
}
