package vectors

import (
	"math"
	"testing"
)

const eps = 1e-12

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func nearVec(a, b Vec3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestCrossIsOrthogonal(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{-4, 0.5, 2}
	c := a.Cross(b)
	if !near(c.Dot(a), 0) || !near(c.Dot(b), 0) {
		t.Fatalf("cross product %v not orthogonal to inputs", c)
	}
}

func TestNormalizeZero(t *testing.T) {
	if got := Zero().Normalize(); got != (Vec3{}) {
		t.Fatalf("Normalize(0) = %v, want zero vector", got)
	}
	if n := (Vec3{3, 4, 0}).Normalize().Norm(); !near(n, 1) {
		t.Fatalf("normalized length = %v", n)
	}
}

func TestRotate(t *testing.T) {
	cases := []struct {
		name  string
		v     Vec3
		axis  Vec3
		angle float64
		want  Vec3
	}{
		{"quarter turn about z", Vec3{1, 0, 0}, Vec3{0, 0, 1}, math.Pi / 2, Vec3{0, 1, 0}},
		{"half turn about y", Vec3{1, 0, 0}, Vec3{0, 1, 0}, math.Pi, Vec3{-1, 0, 0}},
		{"axis is fixed", Vec3{0, 0, 2}, Vec3{0, 0, 1}, 1.234, Vec3{0, 0, 2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.Rotate(c.axis, c.angle); !nearVec(got, c.want) {
				t.Fatalf("Rotate = %v, want %v", got, c.want)
			}
		})
	}
}

func TestMinMaxCentroid(t *testing.T) {
	a := Vec3{1, -2, 3}
	b := Vec3{-1, 5, 0}
	if got := a.Min(b); got != (Vec3{-1, -2, 0}) {
		t.Fatalf("Min = %v", got)
	}
	if got := a.Max(b); got != (Vec3{1, 5, 3}) {
		t.Fatalf("Max = %v", got)
	}
	if got := Centroid([]Vec3{a, b}); !nearVec(got, Vec3{0, 1.5, 1.5}) {
		t.Fatalf("Centroid = %v", got)
	}
	if got := Centroid(nil); got != (Vec3{}) {
		t.Fatalf("Centroid(nil) = %v", got)
	}
}

func TestDistance(t *testing.T) {
	a := Vec3{1, 2, 2}
	if d := Distance(a, Zero()); !near(d, 3) {
		t.Fatalf("Distance = %v", d)
	}
	if d := SquaredDistance(a, Zero()); !near(d, 9) {
		t.Fatalf("SquaredDistance = %v", d)
	}
}
