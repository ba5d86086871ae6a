package surface

import (
	"math"

	"github.com/echoflaresat/sasprobe/geometry"
	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/vectors"
)

// Face is the cut a neighbor makes into an atom's extended sphere: the disc
// where the radical plane of the two spheres crosses it. Normal points from
// the atom toward the neighbor; everything on the sphere beyond the plane
// is buried inside the neighbor.
type Face struct {
	Center   vectors.Vec3
	Normal   vectors.Vec3
	Radius   float64 // disc radius, 0 when the plane misses the sphere
	Neighbor int
}

// Plane returns the face plane in Hesse normal form.
func (f Face) Plane() geometry.Plane {
	return geometry.Plane{Normal: f.Normal, Distance: f.Normal.Dot(f.Center)}
}

// Keeps reports whether p is on the atom's side of the face.
func (f Face) Keeps(p vectors.Vec3, eps float64) bool {
	return geometry.PointInsideHalfspace(f.Center, f.Normal, p, eps)
}

// Contact is the relation between an atom and one neighbor.
type Contact uint8

const (
	// Apart: the extended spheres do not overlap or cannot cut each other.
	Apart Contact = iota
	// Cuts: the neighbor cuts a face from the atom.
	Cuts
	// Engulfs: the atom lies entirely inside the neighbor.
	Engulfs
)

func (c Contact) String() string {
	switch c {
	case Apart:
		return "apart"
	case Cuts:
		return "cuts"
	case Engulfs:
		return "engulfs"
	default:
		return "unknown"
	}
}

// coincidentTolerance is the center distance below which two atoms are
// treated as sharing a center.
const coincidentTolerance = 1e-9

// CuttingFace returns the face that the sphere (cj, rj) cuts from the
// sphere (ci, ri). Both radii are extended radii. eps is the boundary slack
// used for the engulfment test.
//
// The radical plane sits at distance (d² + ri² - rj²) / 2d from ci along
// the center line. Spheres that touch in a single point do not cut.
func CuttingFace(ci vectors.Vec3, ri float64, cj vectors.Vec3, rj float64, eps float64) (Face, Contact) {
	face, contact, _, _ := cutPair(ci, ri, cj, rj, eps, eps)
	return face, contact
}

// cutPair returns the faces a and b cut from each other, with the slack
// epsA and epsB for their engulfment tests. Both faces lie on one plane:
// b's face has a's center and the opposite normal.
func cutPair(ca vectors.Vec3, ra float64, cb vectors.Vec3, rb float64, epsA, epsB float64) (fa Face, ka Contact, fb Face, kb Contact) {
	delta := cb.Sub(ca)
	d := delta.Norm()
	if d >= ra+rb {
		return Face{}, Apart, Face{}, Apart
	}
	if d < coincidentTolerance {
		// identical spheres cut nothing; otherwise the smaller is inside
		switch {
		case ra < rb:
			return Face{}, Engulfs, Face{}, Apart
		case rb < ra:
			return Face{}, Apart, Face{}, Engulfs
		default:
			return Face{}, Apart, Face{}, Apart
		}
	}

	offA := (d*d + ra*ra - rb*rb) / (2 * d)
	offB := d - offA
	normal := delta.Scale(1 / d)
	center := ca.Add(normal.Scale(offA))

	ka, kb = Cuts, Cuts
	if offA < -ra+epsA {
		ka = Engulfs
	} else {
		fa = Face{Center: center, Normal: normal, Radius: math.Sqrt(math.Max(0, ra*ra-offA*offA))}
	}
	if offB < -rb+epsB {
		kb = Engulfs
	} else {
		fb = Face{Center: center, Normal: normal.Neg(), Radius: math.Sqrt(math.Max(0, rb*rb-offB*offB))}
	}
	return fa, ka, fb, kb
}

type buildStatus struct {
	engulfed bool
	overflow bool
}

// buildFaces fills c.faces with the faces cut from atom i. It stops early
// when a neighbor engulfs the atom or when MaxFaces is exceeded.
func (c *Classifier) buildFaces(i int) buildStatus {
	c.faces = c.faces[:0]

	if c.opts.Neighborhood != nil {
		c.candidates = c.opts.Neighborhood.Candidates(i, c.candidates[:0])
		for _, j := range c.candidates {
			if status, done := c.addFace(i, j); done {
				return status
			}
		}
		return buildStatus{}
	}

	for j := range c.atoms {
		if j == i {
			continue
		}
		if status, done := c.addFace(i, j); done {
			return status
		}
	}
	return buildStatus{}
}

func (c *Classifier) addFace(i, j int) (buildStatus, bool) {
	face, contact := c.cuttingFace(i, j)
	switch contact {
	case Engulfs:
		return buildStatus{engulfed: true}, true
	case Cuts:
		if c.opts.MaxFaces > 0 && len(c.faces) == c.opts.MaxFaces {
			return buildStatus{overflow: true}, true
		}
		c.faces = append(c.faces, face)
	}
	return buildStatus{}, false
}

func (c *Classifier) cuttingFace(i, j int) (Face, Contact) {
	if c.opts.PlaneCache != nil {
		return c.opts.PlaneCache.face(c.atoms, i, j, c.opts.ProbeRadius, c.opts.tolerance())
	}
	return pairFace(c.atoms, i, j, c.opts.ProbeRadius, c.opts.tolerance())
}

func pairFace(atoms []molecule.Atom, i, j int, probe, tol float64) (Face, Contact) {
	ri := atoms[i].ExtendedRadius(probe)
	face, contact := CuttingFace(atoms[i].Center, ri, atoms[j].Center, atoms[j].ExtendedRadius(probe), tol*ri)
	face.Neighbor = j
	return face, contact
}
