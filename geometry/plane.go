// Package geometry holds the stateless plane, line and sphere math used by
// the surface classifier. All functions are pure.
package geometry

import (
	"math"

	"github.com/echoflaresat/sasprobe/vectors"
)

// ParallelTolerance is the bound on |n1 × n2|² (sin² of the angle between
// two unit normals) below which planes are treated as parallel.
const ParallelTolerance = 1e-12

// Plane is a plane in Hesse normal form: all points x with Normal·x = Distance.
// Normal is a unit vector; the half-space Normal·x > Distance is "cut away".
type Plane struct {
	Normal   vectors.Vec3
	Distance float64
}

// NewPlane builds the plane through center with the given normal.
// The normal is normalized.
func NewPlane(center, normal vectors.Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Distance: n.Dot(center)}
}

// SignedDistance returns Normal·p - Distance, positive on the cut-away side.
func (p Plane) SignedDistance(point vectors.Vec3) float64 {
	return p.Normal.Dot(point) - p.Distance
}

// Contains reports whether point lies on the kept side of the plane, with
// eps of slack on the boundary. A signed distance > eps means cut away.
func (p Plane) Contains(point vectors.Vec3, eps float64) bool {
	return p.SignedDistance(point) <= eps
}

// Flip returns the same plane with the opposite orientation.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Neg(), Distance: -p.Distance}
}

// Parallel reports whether the two planes are (anti-)parallel.
func (p Plane) Parallel(o Plane) bool {
	return p.Normal.Cross(o.Normal).SquaredNorm() < ParallelTolerance
}

// Coincident reports whether both planes describe the same set of points,
// regardless of orientation, within eps.
func (p Plane) Coincident(o Plane, eps float64) bool {
	if !p.Parallel(o) {
		return false
	}
	if p.Normal.Dot(o.Normal) < 0 {
		o = o.Flip()
	}
	return math.Abs(p.Distance-o.Distance) <= eps
}

// PointInsideHalfspace is the center/normal form of Plane.Contains:
// dot(point - center, normal) <= eps.
func PointInsideHalfspace(center, normal, point vectors.Vec3, eps float64) bool {
	return point.Sub(center).Dot(normal) <= eps
}
