// Package validation cross-checks analytic surface verdicts by sampling
// points on each atom's extended sphere. Sampling can only prove exposure,
// so an internal atom with an exposed sample is a hard mismatch, while a
// surface atom with none is merely unconfirmed.
package validation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/echoflaresat/sasprobe/geometry"
	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/neighbors"
	"github.com/echoflaresat/sasprobe/surface"
	"github.com/echoflaresat/sasprobe/vectors"
)

const (
	DefaultSamples = 250
	DefaultMargin  = 1e-3
)

type Options struct {
	ProbeRadius float64
	// Samples per atom.
	Samples int
	// Atoms is how many randomly chosen atoms to check; 0 checks all.
	Atoms int
	Seed  uint64
	// Margin is the clearance in Å a sample needs to count as exposed in
	// a mismatch, and the overlap it may have to count in an unconfirmed check.
	Margin  float64
	Workers int
}

// AtomCheck is the sampling outcome for one atom.
type AtomCheck struct {
	Index   int
	Verdict surface.Verdict
	Exposed int     // samples with positive clearance
	Area    float64 // exposed fraction times sphere area
}

type Report struct {
	Samples int
	Checked []AtomCheck
	// Mismatches lists internal atoms with a clearly exposed sample.
	Mismatches []int
	// Unconfirmed lists surface atoms where no sample came near exposure.
	Unconfirmed []int
	// Area is the sampled accessible area of the checked atoms in Å².
	Area float64
}

// OK reports whether no mismatch was found.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Validate samples atoms and compares the outcome with results, which must
// hold one verdict per atom.
func Validate(ctx context.Context, atoms []molecule.Atom, results []surface.Result, opts Options) (Report, error) {
	if len(results) != len(atoms) {
		return Report{}, fmt.Errorf("validate: %d results for %d atoms", len(results), len(atoms))
	}
	if opts.Samples <= 0 {
		opts.Samples = DefaultSamples
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultMargin
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	report := Report{Samples: opts.Samples}
	if len(atoms) == 0 {
		return report, nil
	}

	grid, err := neighbors.NewGrid(atoms, neighbors.CellSizeFor(atoms, opts.ProbeRadius))
	if err != nil {
		return Report{}, fmt.Errorf("validate: %w", err)
	}

	selected := selectAtoms(len(atoms), opts.Atoms, opts.Seed)
	unit := FibonacciSphere(opts.Samples)
	report.Checked = make([]AtomCheck, len(selected))

	var (
		mu          sync.Mutex
		mismatches  []int
		unconfirmed []int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, i := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := sampleAtom(atoms, grid, i, unit, opts)
			ext := extendedSphere(atoms[i], opts.ProbeRadius)
			check := AtomCheck{
				Index:   i,
				Verdict: results[i].Verdict,
				Exposed: s.exposed,
				Area:    float64(s.exposed) / float64(len(unit)) * ext.Area(),
			}
			report.Checked[k] = check

			mu.Lock()
			defer mu.Unlock()
			switch {
			case check.Verdict == surface.Internal && s.clear > 0:
				mismatches = append(mismatches, i)
			case check.Verdict == surface.Surface && s.near == 0:
				unconfirmed = append(unconfirmed, i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	slices.Sort(mismatches)
	slices.Sort(unconfirmed)
	report.Mismatches = mismatches
	report.Unconfirmed = unconfirmed
	for _, c := range report.Checked {
		report.Area += c.Area
	}
	return report, nil
}

// selectAtoms picks count distinct atom indices in ascending order, or all
// of them when count is 0 or too large.
func selectAtoms(n, count int, seed uint64) []int {
	if count <= 0 || count >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	picked := rng.Perm(n)[:count]
	slices.Sort(picked)
	return picked
}

type sampleCounts struct {
	exposed int // clearance > 0
	clear   int // clearance > margin
	near    int // clearance > -margin
}

func extendedSphere(a molecule.Atom, probe float64) geometry.Sphere {
	return geometry.Sphere{Center: a.Center, Radius: a.ExtendedRadius(probe)}
}

func sampleAtom(atoms []molecule.Atom, grid *neighbors.Grid, i int, unit []vectors.Vec3, opts Options) sampleCounts {
	// per-atom stream keeps results independent of scheduling
	rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)+1))
	axis := vectors.Vec3{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}.Normalize()
	if axis == vectors.Zero() {
		axis = vectors.Vec3{Z: 1}
	}
	angle := rng.Float64() * 2 * math.Pi

	self := extendedSphere(atoms[i], opts.ProbeRadius)
	var nearby []geometry.Sphere
	for _, j := range grid.Candidates(i, nil) {
		if other := extendedSphere(atoms[j], opts.ProbeRadius); self.Intersects(other) {
			nearby = append(nearby, other)
		}
	}

	var counts sampleCounts
	for _, u := range unit {
		p := self.Center.Add(u.Rotate(axis, angle).Scale(self.Radius))
		clearance := math.Inf(1)
		for _, o := range nearby {
			clearance = math.Min(clearance, vectors.Distance(p, o.Center)-o.Radius)
		}
		if clearance > 0 {
			counts.exposed++
		}
		if clearance > opts.Margin {
			counts.clear++
		}
		if clearance > -opts.Margin {
			counts.near++
		}
	}
	return counts
}

// FibonacciSphere returns n nearly uniform unit vectors on a golden-angle spiral.
func FibonacciSphere(n int) []vectors.Vec3 {
	golden := math.Pi * (3 - math.Sqrt(5))
	points := make([]vectors.Vec3, n)
	for k := range points {
		y := 1 - 2*(float64(k)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(k)
		points[k] = vectors.Vec3{X: r * math.Cos(theta), Y: y, Z: r * math.Sin(theta)}
	}
	return points
}
