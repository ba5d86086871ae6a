package validation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/surface"
	"github.com/echoflaresat/sasprobe/vectors"
)

func tetrahedralCluster() []molecule.Atom {
	atoms := []molecule.Atom{{Center: vectors.Vec3{}, Radius: 0.5}}
	for _, v := range []vectors.Vec3{{X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1}} {
		atoms = append(atoms, molecule.Atom{Center: v.Normalize().Scale(2), Radius: 2})
	}
	return atoms
}

func TestValidateAgreesWithClassifier(t *testing.T) {
	atoms := tetrahedralCluster()
	results, _, err := surface.Classify(context.Background(), atoms, surface.Options{})
	require.NoError(t, err)

	report, err := Validate(context.Background(), atoms, results, Options{Samples: 500, Seed: 1})
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Empty(t, report.Unconfirmed)
	require.Len(t, report.Checked, 5)
	assert.Zero(t, report.Checked[0].Exposed)
	assert.Zero(t, report.Checked[0].Area)
	for _, c := range report.Checked[1:] {
		assert.Positive(t, c.Exposed)
	}
	assert.Positive(t, report.Area)
}

func TestValidateFlagsWrongVerdicts(t *testing.T) {
	atoms := tetrahedralCluster()
	results := make([]surface.Result, len(atoms))
	results[0].Verdict = surface.Surface  // actually buried
	results[1].Verdict = surface.Internal // actually exposed
	for i := 2; i < len(results); i++ {
		results[i].Verdict = surface.Surface
	}

	report, err := Validate(context.Background(), atoms, results, Options{Samples: 300})
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []int{1}, report.Mismatches)
	assert.Equal(t, []int{0}, report.Unconfirmed)
}

func TestSampledArea(t *testing.T) {
	single := []molecule.Atom{{Center: vectors.Vec3{X: 1}, Radius: 1.6}}
	report, err := Validate(context.Background(), single, make([]surface.Result, 1), Options{ProbeRadius: 1.4})
	require.NoError(t, err)
	assert.InDelta(t, 4*math.Pi*9, report.Area, 1e-9)
	assert.Equal(t, DefaultSamples, report.Samples)

	// the plane halfway between two unit spheres one apart buries a quarter of each
	pair := []molecule.Atom{
		{Center: vectors.Vec3{}, Radius: 1},
		{Center: vectors.Vec3{X: 1}, Radius: 1},
	}
	report, err = Validate(context.Background(), pair, make([]surface.Result, 2), Options{Samples: 4000, Seed: 7})
	require.NoError(t, err)
	assert.InDelta(t, 2*0.75*4*math.Pi, report.Area, 0.1)
}

func TestSelectAtoms(t *testing.T) {
	picked := selectAtoms(10, 3, 42)
	require.Len(t, picked, 3)
	assert.IsIncreasing(t, picked)
	assert.Equal(t, picked, selectAtoms(10, 3, 42), "deterministic for a seed")

	assert.Len(t, selectAtoms(4, 0, 1), 4)
	assert.Len(t, selectAtoms(4, 9, 1), 4)
}

func TestValidateSubset(t *testing.T) {
	atoms := tetrahedralCluster()
	report, err := Validate(context.Background(), atoms, make([]surface.Result, len(atoms)), Options{Atoms: 2, Seed: 3})
	require.NoError(t, err)
	assert.Len(t, report.Checked, 2)
}

func TestValidateErrors(t *testing.T) {
	_, err := Validate(context.Background(), tetrahedralCluster(), nil, Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	atoms := tetrahedralCluster()
	_, err = Validate(ctx, atoms, make([]surface.Result, len(atoms)), Options{})
	assert.ErrorIs(t, err, context.Canceled)

	report, err := Validate(context.Background(), nil, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Checked)
}

func TestFibonacciSphere(t *testing.T) {
	points := FibonacciSphere(1000)
	require.Len(t, points, 1000)
	for _, p := range points {
		assert.InDelta(t, 1, p.Norm(), 1e-12)
	}
	assert.InDelta(t, 0, vectors.Centroid(points).Norm(), 1e-2)
}
