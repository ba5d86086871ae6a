package surface

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/vectors"
)

func classifyAll(atoms []molecule.Atom, opts Options) []Result {
	c := NewClassifier(atoms, opts)
	out := make([]Result, len(atoms))
	for i := range atoms {
		out[i] = c.Classify(i)
	}
	return out
}

func verdicts(results []Result) []Verdict {
	out := make([]Verdict, len(results))
	for i, r := range results {
		out[i] = r.Verdict
	}
	return out
}

func randomCluster(rng *rand.Rand, n int, extent float64) []molecule.Atom {
	atoms := make([]molecule.Atom, n)
	for i := range atoms {
		atoms[i] = molecule.Atom{
			Center: vectors.Vec3{
				X: rng.Float64() * extent,
				Y: rng.Float64() * extent,
				Z: rng.Float64() * extent,
			},
			Radius: 0.8 + 1.2*rng.Float64(),
		}
	}
	return atoms
}

// direction returns the unit vector polar degrees away from +X, turned
// twist degrees about the X axis.
func direction(polar, twist float64) vectors.Vec3 {
	p, q := polar*math.Pi/180, twist*math.Pi/180
	return vectors.Vec3{X: math.Cos(p), Y: math.Sin(p) * math.Cos(q), Z: math.Sin(p) * math.Sin(q)}
}

func tetrahedralCluster() []molecule.Atom {
	atoms := []molecule.Atom{{Center: vectors.Vec3{}, Radius: 0.5}}
	for _, v := range []vectors.Vec3{{X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1}} {
		atoms = append(atoms, molecule.Atom{Center: v.Normalize().Scale(2), Radius: 2})
	}
	return atoms
}

func TestEmptyAndSingleAtom(t *testing.T) {
	assert.Empty(t, classifyAll(nil, Options{ProbeRadius: 1.4}))

	res := classifyAll([]molecule.Atom{{Center: vectors.Vec3{X: 3}, Radius: 1.7}}, Options{ProbeRadius: 1.4})
	require.Len(t, res, 1)
	assert.Equal(t, Surface, res[0].Verdict)
	assert.Equal(t, StageNoFaces, res[0].Stage)
	assert.Zero(t, res[0].Faces)
}

func TestIsolatedAtomsAreSurface(t *testing.T) {
	var atoms []molecule.Atom
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			atoms = append(atoms, molecule.Atom{
				Center: vectors.Vec3{X: float64(x) * 10, Y: float64(y) * 10},
				Radius: 1 + 0.25*float64(x),
			})
		}
	}
	for _, r := range classifyAll(atoms, Options{ProbeRadius: 1.4}) {
		assert.Equal(t, Surface, r.Verdict)
		assert.Equal(t, StageNoFaces, r.Stage)
	}
}

func TestTwoAtomsAreSurface(t *testing.T) {
	atoms := []molecule.Atom{
		{Center: vectors.Vec3{}, Radius: 1.5},
		{Center: vectors.Vec3{X: 2}, Radius: 1},
	}
	for i, r := range classifyAll(atoms, Options{ProbeRadius: 1.4}) {
		assert.Equal(t, Surface, r.Verdict, "atom %d", i)
		assert.Equal(t, 1, r.Faces)
	}
}

func TestTriangleScenario(t *testing.T) {
	atoms := []molecule.Atom{
		{Center: vectors.Vec3{X: 0, Y: 0, Z: 0}, Radius: 1},
		{Center: vectors.Vec3{X: 2, Y: 0, Z: 0}, Radius: 1},
		{Center: vectors.Vec3{X: 1, Y: 1.5, Z: 0}, Radius: 1},
	}
	res := classifyAll(atoms, Options{})

	assert.Equal(t, []Verdict{Surface, Surface, Surface}, verdicts(res))
	// the first pair only touches
	assert.Equal(t, 1, res[0].Faces)
	assert.Equal(t, 1, res[1].Faces)
	assert.Equal(t, 2, res[2].Faces)
}

func TestEnclosedCentroidIsInternal(t *testing.T) {
	atoms := tetrahedralCluster()
	res := classifyAll(atoms, Options{})

	assert.Equal(t, Internal, res[0].Verdict)
	assert.Equal(t, StageEnclosed, res[0].Stage)
	assert.Equal(t, 4, res[0].LiveFaces)
	for i := 1; i < len(atoms); i++ {
		assert.Equal(t, Surface, res[i].Verdict, "outer atom %d", i)
	}
}

func TestEngulfedAtom(t *testing.T) {
	atoms := []molecule.Atom{
		{Center: vectors.Vec3{}, Radius: 3},
		{Center: vectors.Vec3{X: 0.5}, Radius: 1},
	}
	res := classifyAll(atoms, Options{ProbeRadius: 0.5})

	assert.Equal(t, Surface, res[0].Verdict)
	assert.Equal(t, StageUncut, res[0].Stage, "the inner atom's plane misses the outer sphere")
	assert.Equal(t, Internal, res[1].Verdict)
	assert.True(t, res[1].Engulfed)
}

func TestOpposingFacesCoverSphere(t *testing.T) {
	atoms := []molecule.Atom{
		{Center: vectors.Vec3{}, Radius: 1},
		{Center: vectors.Vec3{X: 1}, Radius: math.Sqrt(3)},
		{Center: vectors.Vec3{X: -1}, Radius: math.Sqrt(3)},
	}

	res := classifyAll(atoms, Options{})
	assert.Equal(t, Internal, res[0].Verdict)
	assert.Equal(t, StagePruned, res[0].Stage)

	res = classifyAll(atoms, Options{DisablePruning: true})
	assert.Equal(t, Internal, res[0].Verdict)
	assert.Equal(t, StageEnclosed, res[0].Stage)
}

// Two small crossing faces sit inside the cut of a large face whose normal
// points away from them, so no face dominates another and every rim
// vertex is cut. The sphere is still exposed around -X.
func TestExposedCapWithoutVertices(t *testing.T) {
	const d = 1.9
	rj := math.Sqrt(d*d + 1 - 2*d*0.97)
	atoms := []molecule.Atom{
		{Center: vectors.Vec3{}, Radius: 1},
		{Center: vectors.Vec3{X: 1}, Radius: math.Sqrt(3)},
		{Center: direction(100, 0).Scale(d), Radius: rj},
		{Center: direction(100, 12).Scale(d), Radius: rj},
	}

	for _, opts := range []Options{{}, {DisablePruning: true}} {
		r := NewClassifier(atoms, opts).Classify(0)
		assert.Equal(t, Surface, r.Verdict)
		assert.Equal(t, StageRim, r.Stage)
		assert.Equal(t, 3, r.LiveFaces)
	}
}

func TestIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	atoms := randomCluster(rng, 40, 6)
	opts := Options{ProbeRadius: 1.4}

	c := NewClassifier(atoms, opts)
	first := make([]Result, len(atoms))
	for i := range atoms {
		first[i] = c.Classify(i)
	}
	for i := range atoms {
		assert.Equal(t, first[i], c.Classify(i), "atom %d", i)
	}
	assert.Equal(t, first, classifyAll(atoms, opts))
}

func TestProbeMonotonicity(t *testing.T) {
	probes := []float64{0, 0.3, 0.7, 1.0, 1.4, 2.0}
	rng := rand.New(rand.NewPCG(11, 3))
	for trial := 0; trial < 20; trial++ {
		atoms := randomCluster(rng, 8+rng.IntN(20), 3+4*rng.Float64())

		internal := make([]bool, len(atoms))
		for _, probe := range probes {
			for i, r := range classifyAll(atoms, Options{ProbeRadius: probe}) {
				if internal[i] {
					assert.Equal(t, Internal, r.Verdict, "trial %d atom %d re-exposed at probe %g", trial, i, probe)
				}
				internal[i] = r.Verdict == Internal
			}
		}
	}
}

// reversedOrder offers every other atom, highest index first.
type reversedOrder struct{ n int }

func (r reversedOrder) Candidates(i int, dst []int) []int {
	for j := r.n - 1; j >= 0; j-- {
		if j != i {
			dst = append(dst, j)
		}
	}
	return dst
}

func TestPruningDoesNotChangeVerdicts(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	for trial := 0; trial < 40; trial++ {
		atoms := randomCluster(rng, 5+rng.IntN(20), 2+4*rng.Float64())
		probe := []float64{0, 0.5, 1.4}[rng.IntN(3)]

		pruned := verdicts(classifyAll(atoms, Options{ProbeRadius: probe}))
		unpruned := verdicts(classifyAll(atoms, Options{ProbeRadius: probe, DisablePruning: true}))
		reversed := verdicts(classifyAll(atoms, Options{ProbeRadius: probe, Neighborhood: reversedOrder{len(atoms)}}))

		assert.Equal(t, pruned, unpruned, "trial %d", trial)
		assert.Equal(t, pruned, reversed, "trial %d", trial)
	}
}

// sampleExposed reports whether some point on atom i's extended sphere lies
// outside every other extended sphere by more than margin.
func sampleExposed(atoms []molecule.Atom, i int, probe float64, samples int, margin float64) bool {
	golden := math.Pi * (3 - math.Sqrt(5))
	ri := atoms[i].ExtendedRadius(probe)
	for k := 0; k < samples; k++ {
		y := 1 - 2*(float64(k)+0.5)/float64(samples)
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(k)
		p := atoms[i].Center.Add(vectors.Vec3{X: r * math.Cos(theta), Y: y, Z: r * math.Sin(theta)}.Scale(ri))

		exposed := true
		for j, a := range atoms {
			if j == i {
				continue
			}
			rj := a.ExtendedRadius(probe) + margin
			if vectors.SquaredDistance(p, a.Center) < rj*rj {
				exposed = false
				break
			}
		}
		if exposed {
			return true
		}
	}
	return false
}

func TestSampledExposureImpliesSurface(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	for trial := 0; trial < 30; trial++ {
		atoms := randomCluster(rng, 5+rng.IntN(20), 2+4*rng.Float64())
		probe := []float64{0, 0.5, 1.4}[rng.IntN(3)]

		for i, r := range classifyAll(atoms, Options{ProbeRadius: probe}) {
			if r.Verdict == Internal {
				assert.False(t, sampleExposed(atoms, i, probe, 1000, 1e-3),
					"trial %d atom %d is internal but a sample is exposed", trial, i)
			}
		}
	}
	assert.True(t, sampleExposed(tetrahedralCluster(), 1, 0, 200, 1e-3))
	assert.False(t, sampleExposed(tetrahedralCluster(), 0, 0, 1000, 1e-3))
}

func TestMaxFacesOverflow(t *testing.T) {
	atoms := []molecule.Atom{
		{Center: vectors.Vec3{}, Radius: 1},
		{Center: vectors.Vec3{X: 1.5}, Radius: 1},
		{Center: vectors.Vec3{Y: 1.5}, Radius: 1},
		{Center: vectors.Vec3{Z: 1.5}, Radius: 1},
	}

	r := NewClassifier(atoms, Options{MaxFaces: 2}).Classify(0)
	assert.True(t, r.Overflow)
	assert.Equal(t, 2, r.Faces)

	r = NewClassifier(atoms, Options{MaxFaces: 3}).Classify(0)
	assert.False(t, r.Overflow)
	assert.Equal(t, 3, r.Faces)

	r = NewClassifier(atoms, Options{MaxFaces: 1}).Classify(1)
	assert.False(t, r.Overflow, "atom 1 overlaps only atom 0")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "surface", Surface.String())
	assert.Equal(t, "internal", Internal.String())
	assert.Equal(t, "enclosed", StageEnclosed.String())
	assert.Equal(t, "unknown", Stage(99).String())
}
