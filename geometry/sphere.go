package geometry

import (
	"math"

	"github.com/echoflaresat/sasprobe/vectors"
)

// Sphere is a center and radius.
type Sphere struct {
	Center vectors.Vec3
	Radius float64
}

// Intersects reports whether the two spheres overlap in more than one point.
func (s Sphere) Intersects(o Sphere) bool {
	return vectors.Distance(s.Center, o.Center) < s.Radius+o.Radius
}

// ContainsPoint reports whether p lies strictly inside the sphere by more than margin.
func (s Sphere) ContainsPoint(p vectors.Vec3, margin float64) bool {
	r := s.Radius - margin
	if r <= 0 {
		return false
	}
	return vectors.SquaredDistance(s.Center, p) < r*r
}

// Area returns the surface area 4πr².
func (s Sphere) Area() float64 {
	return 4 * math.Pi * s.Radius * s.Radius
}

// LineSphereDiscriminant returns b² - c for the quadratic t² + 2bt + c = 0
// that intersects line with the sphere, where b = dir·(p - center) and
// c = |p - center|² - r². Positive: two roots, zero: tangent, negative: miss.
func LineSphereDiscriminant(line Line, center vectors.Vec3, radius float64) float64 {
	oc := line.Point.Sub(center)
	b := line.Direction.Dot(oc)
	c := oc.SquaredNorm() - radius*radius
	return b*b - c
}

// Crossing classifies a line/sphere discriminant.
type Crossing int

const (
	Miss Crossing = iota
	Tangent
	Secant
)

func (c Crossing) String() string {
	switch c {
	case Miss:
		return "miss"
	case Tangent:
		return "tangent"
	case Secant:
		return "secant"
	default:
		return "unknown"
	}
}

// ClassifyDiscriminant maps disc to a Crossing; |disc| <= tol counts as tangent.
func ClassifyDiscriminant(disc, tol float64) Crossing {
	switch {
	case disc > tol:
		return Secant
	case disc >= -tol:
		return Tangent
	default:
		return Miss
	}
}

// LineSphereRoots returns the parametric offsets along line where it meets
// the sphere: two for a secant, one for a tangent, none for a miss.
// The offsets are appended to dst.
func LineSphereRoots(dst []float64, line Line, center vectors.Vec3, radius, tol float64) []float64 {
	disc := LineSphereDiscriminant(line, center, radius)
	left := -line.Direction.Dot(line.Point.Sub(center))

	switch ClassifyDiscriminant(disc, tol) {
	case Secant:
		right := math.Sqrt(disc)
		return append(dst, left+right, left-right)
	case Tangent:
		return append(dst, left)
	default:
		return dst
	}
}
