// Package molecule loads atom sets (center + van der Waals radius) from
// structure files and provides the element radius table.
package molecule

import (
	"math"

	"github.com/echoflaresat/sasprobe/vectors"
)

// Atom is one sphere of the molecule. Only Center and Radius take part in
// surface classification; the remaining fields are carried for reports.
type Atom struct {
	Center vectors.Vec3
	Radius float64

	Serial  int
	Name    string
	Element string
	Residue string
	ResSeq  int
	Chain   string
}

// ExtendedRadius returns the radius inflated by the solvent probe.
func (a Atom) ExtendedRadius(probe float64) float64 {
	return a.Radius + probe
}

// MaxRadius returns the largest atom radius, or 0 for an empty set.
func MaxRadius(atoms []Atom) float64 {
	maxR := 0.0
	for _, a := range atoms {
		maxR = math.Max(maxR, a.Radius)
	}
	return maxR
}

// Bounds returns the axis-aligned box around all atom centers, grown by
// the largest radius so every sphere is inside. Empty input yields a zero box.
func Bounds(atoms []Atom) (min, max vectors.Vec3) {
	if len(atoms) == 0 {
		return vectors.Vec3{}, vectors.Vec3{}
	}
	min, max = atoms[0].Center, atoms[0].Center
	for _, a := range atoms[1:] {
		min = min.Min(a.Center)
		max = max.Max(a.Center)
	}
	r := MaxRadius(atoms)
	return min.AddScalar(-r), max.AddScalar(r)
}

// Subset returns the atoms at the given indices, in order.
func Subset(atoms []Atom, indices []int) []Atom {
	out := make([]Atom, len(indices))
	for k, i := range indices {
		out[k] = atoms[i]
	}
	return out
}
