package surface

import (
	"github.com/echoflaresat/sasprobe/geometry"
	"github.com/echoflaresat/sasprobe/vectors"
)

// testEndpoints intersects every pair of live faces with the sphere and
// reports whether any of the resulting rim vertices is kept by all live
// faces.
func (c *Classifier) testEndpoints(s sphere) bool {
	for a := 0; a < len(c.live); a++ {
		fp := c.faces[c.live[a]].Plane()
		for b := a + 1; b < len(c.live); b++ {
			line, ok := geometry.IntersectPlanes(fp, c.faces[c.live[b]].Plane())
			if !ok {
				continue
			}
			c.roots = geometry.LineSphereRoots(c.roots[:0], line, s.center, s.radius, s.discTol)
			for _, t := range c.roots {
				if c.keptByAll(line.At(t), s.eps) {
					return true
				}
			}
		}
	}
	return false
}

// keptByAll reports whether p is on the kept side of every live face.
func (c *Classifier) keptByAll(p vectors.Vec3, eps float64) bool {
	for _, k := range c.live {
		if !c.faces[k].Keeps(p, eps) {
			return false
		}
	}
	return true
}

type rimOutcome uint8

const (
	rimCovered rimOutcome = iota
	rimExposed
	noRims
)

// testRims covers exposed regions bounded by whole rims, which produce no
// surviving vertex. When no vertex survives, a rim that borders exposed
// surface borders it along its full length, so one point per rim decides.
func (c *Classifier) testRims(s sphere) rimOutcome {
	outcome := noRims
	for _, k := range c.live {
		f := c.faces[k]
		if f.Radius <= s.eps {
			continue
		}
		outcome = rimCovered
		p := f.Center.Add(f.Normal.Orthogonal().Scale(f.Radius))
		if c.keptByAll(p, s.eps) {
			return rimExposed
		}
	}
	return outcome
}
