// Package geo provides the segment and line distance primitives used by the
// breadcrumb cleanup algorithms. All coordinates are meters in a local NED
// frame, represented as r3.Vector.
package geo

import (
	"math"

	"github.com/golang/geo/r3"
)

// degenerateDeterminant is the threshold below which the 2x2 system solved by
// SegmentDistance is treated as singular (parallel or zero-length segments).
const degenerateDeterminant = 1e-12

// SegmentDistance returns the closest distance in 3-D space between any part
// of the two segments (p1,p2) and (p3,p4), and the point halfway between the
// two closest points.
//
// Parallel or degenerate segments return +Inf and a zero midpoint. Callers
// tolerate this: a loop past a parallel pair is still detected against the
// segment directly before or after it.
func SegmentDistance(p1, p2, p3, p4 r3.Vector) (float64, r3.Vector) {
	d1 := p2.Sub(p1)
	d2 := p4.Sub(p3)
	r := p1.Sub(p3)

	// Coefficients of the normal equations for the closest-approach
	// parameters t1 (along d1) and t2 (along d2).
	a := d1.Dot(d1)
	b := d1.Dot(d2)
	c := d2.Dot(d2)
	d := d1.Dot(r)
	e := d2.Dot(r)

	det := a*c - b*b
	if math.Abs(det) < degenerateDeterminant {
		return math.Inf(1), r3.Vector{}
	}

	t1 := clamp01((b*e - c*d) / det)
	t2 := clamp01((a*e - b*d) / det)

	c1 := p1.Add(d1.Mul(t1))
	c2 := p3.Add(d2.Mul(t2))
	return c1.Sub(c2).Norm(), c1.Add(c2).Mul(0.5)
}

// PointLineDistance returns the perpendicular distance from pt to the
// infinite line through a and b, computed via the triangle-area method.
// Returns 0 when a == b.
func PointLineDistance(pt, a, b r3.Vector) float64 {
	sideA := pt.Distance(a)
	sideB := a.Distance(b)
	sideC := b.Distance(pt)

	if sideB == 0 {
		return 0
	}

	s := (sideA + sideB + sideC) / 2
	areaSq := s * (s - sideA) * (s - sideB) * (s - sideC)
	// Nearly collinear triangles can push the radicand just below zero.
	if areaSq < 0 {
		areaSq = 0
	}
	return 2 * math.Sqrt(areaSq) / sideB
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
