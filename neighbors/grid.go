// Package neighbors is the uniform grid broad phase that narrows the set of
// atoms a classifier has to look at.
package neighbors

import (
	"fmt"
	"math"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/vectors"
)

// maxCellsPerAtom bounds the grid size for sparse inputs; cells are grown
// until the grid fits.
const maxCellsPerAtom = 8

// Grid buckets atom centers into cubic cells. Candidates returns every atom
// in the 27 cells around a query, so any atom closer than CellSize to the
// query point is included.
//
// A Grid is read-only after construction and safe for concurrent use.
type Grid struct {
	min      vectors.Vec3
	cellSize float64
	res      [3]int

	cellStart []int // cellStart[c]..cellStart[c+1] indexes cellAtoms
	cellAtoms []int
	atomCell  []int
}

// CellSizeFor returns the smallest cell size for which grid candidates are
// a superset of all atoms whose extended spheres can intersect:
// twice the largest extended radius.
func CellSizeFor(atoms []molecule.Atom, probe float64) float64 {
	return 2 * (molecule.MaxRadius(atoms) + probe)
}

// NewGrid builds a grid over atoms. cellSize must be positive.
func NewGrid(atoms []molecule.Atom, cellSize float64) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("invalid cell size %g", cellSize)
	}

	g := &Grid{cellSize: cellSize, res: [3]int{1, 1, 1}}
	if len(atoms) > 0 {
		lo, hi := atoms[0].Center, atoms[0].Center
		for i, a := range atoms {
			if !finite(a.Center) {
				return nil, fmt.Errorf("atom %d: non-finite center %v", i, a.Center)
			}
			lo = lo.Min(a.Center)
			hi = hi.Max(a.Center)
		}
		extent := hi.Sub(lo)
		if !finite(extent) {
			return nil, fmt.Errorf("bounding box %v to %v is too large", lo, hi)
		}
		g.min = lo
		g.fit(extent, len(atoms))
	}

	cells := g.res[0] * g.res[1] * g.res[2]
	g.cellStart = make([]int, cells+1)
	g.atomCell = make([]int, len(atoms))

	// counting sort, stable in atom index
	for i, a := range atoms {
		c := g.cellIndex(g.cellCoord(a.Center))
		g.atomCell[i] = c
		g.cellStart[c+1]++
	}
	for c := 0; c < cells; c++ {
		g.cellStart[c+1] += g.cellStart[c]
	}
	g.cellAtoms = make([]int, len(atoms))
	next := make([]int, cells)
	copy(next, g.cellStart[:cells])
	for i, c := range g.atomCell {
		g.cellAtoms[next[c]] = i
		next[c]++
	}
	return g, nil
}

// fit chooses the resolution, growing the cell size when the box would
// need more than maxCellsPerAtom cells per atom.
func (g *Grid) fit(extent vectors.Vec3, atomCount int) {
	limit := float64(maxCellsPerAtom) * float64(atomCount)
	if limit < 27 {
		limit = 27
	}
	// counts stay in float64 until they fit, so wide boxes cannot overflow int
	for {
		nx := math.Floor(extent.X/g.cellSize) + 1
		ny := math.Floor(extent.Y/g.cellSize) + 1
		nz := math.Floor(extent.Z/g.cellSize) + 1
		if nx <= limit && ny <= limit && nz <= limit && nx*ny*nz <= limit {
			g.res = [3]int{int(nx), int(ny), int(nz)}
			return
		}
		g.cellSize *= 2
	}
}

func finite(v vectors.Vec3) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// CellSize returns the effective cell size, which may exceed the requested one.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Resolution returns the number of cells along each axis.
func (g *Grid) Resolution() [3]int {
	return g.res
}

// Candidates appends to dst every atom sharing or bordering atom i's cell,
// except i itself.
func (g *Grid) Candidates(i int, dst []int) []int {
	return g.around(g.cellCoordOf(i), i, dst)
}

// Near appends to dst every atom sharing or bordering the cell containing p.
// Points outside the grid are clamped to the border cells.
func (g *Grid) Near(p vectors.Vec3, dst []int) []int {
	return g.around(g.cellCoord(p), -1, dst)
}

func (g *Grid) around(center [3]int, skip int, dst []int) []int {
	for dz := -1; dz <= 1; dz++ {
		z := center[2] + dz
		if z < 0 || z >= g.res[2] {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			y := center[1] + dy
			if y < 0 || y >= g.res[1] {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				x := center[0] + dx
				if x < 0 || x >= g.res[0] {
					continue
				}
				c := g.cellIndex([3]int{x, y, z})
				for _, j := range g.cellAtoms[g.cellStart[c]:g.cellStart[c+1]] {
					if j != skip {
						dst = append(dst, j)
					}
				}
			}
		}
	}
	return dst
}

func (g *Grid) cellCoordOf(i int) [3]int {
	c := g.atomCell[i]
	x := c % g.res[0]
	c /= g.res[0]
	return [3]int{x, c % g.res[1], c / g.res[1]}
}

func (g *Grid) cellCoord(p vectors.Vec3) [3]int {
	d := p.Sub(g.min)
	return [3]int{
		clamp(d.X/g.cellSize, g.res[0]),
		clamp(d.Y/g.cellSize, g.res[1]),
		clamp(d.Z/g.cellSize, g.res[2]),
	}
}

func (g *Grid) cellIndex(c [3]int) int {
	return c[0] + g.res[0]*(c[1]+g.res[1]*c[2])
}

// clamp converts a fractional cell coordinate to a cell in [0, n). NaN
// lands in cell 0.
func clamp(v float64, n int) int {
	if !(v >= 0) {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}
