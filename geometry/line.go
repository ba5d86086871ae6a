package geometry

import (
	"math"

	"github.com/echoflaresat/sasprobe/vectors"
)

// Line is the parametric line Point + t*Direction with a unit Direction.
type Line struct {
	Point     vectors.Vec3
	Direction vectors.Vec3
}

// At returns Point + t*Direction.
func (l Line) At(t float64) vectors.Vec3 {
	return l.Point.Add(l.Direction.Scale(t))
}

// IntersectPlanes returns the line where planes a and b meet.
// ok is false when the planes are (nearly) parallel.
//
// With d = nA × nB, the point on the line closest to the origin is
// (dA·(nB × d) + dB·(d × nA)) / |d|². The returned direction is d normalized.
func IntersectPlanes(a, b Plane) (line Line, ok bool) {
	d := a.Normal.Cross(b.Normal)
	lenSq := d.SquaredNorm()
	if lenSq < ParallelTolerance {
		return Line{}, false
	}

	point := b.Normal.Cross(d).Scale(a.Distance).
		Add(d.Cross(a.Normal).Scale(b.Distance)).
		Scale(1.0 / lenSq)

	return Line{Point: point, Direction: d.Scale(1.0 / math.Sqrt(lenSq))}, true
}
