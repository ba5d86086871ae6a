package surface

import (
	"github.com/echoflaresat/sasprobe/geometry"
)

// crossInside reports whether the line where planes f and g meet passes
// through the sphere. Parallel planes never cross.
func crossInside(f, g geometry.Plane, s sphere) bool {
	line, ok := geometry.IntersectPlanes(f, g)
	if !ok {
		return false
	}
	disc := geometry.LineSphereDiscriminant(line, s.center, s.radius)
	return geometry.ClassifyDiscriminant(disc, s.discTol) != geometry.Miss
}

// prune drops faces whose cut is contained in another face's cut and
// compacts c.live to the survivors. It returns true when two faces that do
// not cross inside the sphere cut it away completely between them.
//
// Only pairs whose rims do not meet are compared; for those the relative
// position of the face centers decides containment. A dominated face takes
// no further part in pruning.
func (c *Classifier) prune(s sphere) bool {
	n := len(c.faces)
	c.dominated = c.dominated[:0]
	for k := 0; k < n; k++ {
		c.dominated = append(c.dominated, false)
	}

	for a := 0; a < n-1; a++ {
		if c.dominated[a] {
			continue
		}
		f := c.faces[a]
		fp := f.Plane()

		for b := a + 1; b < n; b++ {
			if c.dominated[b] {
				continue
			}
			g := c.faces[b]
			if crossInside(fp, g.Plane(), s) {
				continue
			}

			conn := g.Center.Sub(f.Center)
			gBeyondF := f.Normal.Dot(conn) > 0 // g's center on f's cut side
			fBehindG := g.Normal.Dot(conn) > 0 // f's center on g's kept side

			if gBeyondF && !fBehindG {
				return true
			}
			if f.Normal.Dot(g.Normal) > 0 {
				switch {
				case !gBeyondF && !fBehindG:
					c.dominated[a] = true
				case gBeyondF && fBehindG:
					c.dominated[b] = true
				}
			}
			if c.dominated[a] {
				break
			}
		}
	}

	c.live = c.live[:0]
	for k, d := range c.dominated {
		if !d {
			c.live = append(c.live, k)
		}
	}
	return false
}
