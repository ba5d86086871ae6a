package molecule

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoflaresat/sasprobe/vectors"
)

func pdbLine(record string, serial int, name, alt, res, chain string, resSeq int, x, y, z float64, element string) string {
	return fmt.Sprintf("%-6s%5d %-4s%1s%3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, serial, name, alt, res, chain, resSeq, "", x, y, z, 1.0, 0.0, element)
}

func TestReadPDB(t *testing.T) {
	input := strings.Join([]string{
		"HEADER    TEST",
		pdbLine("ATOM", 1, "N", "", "THR", "A", 1, 17.047, 14.099, 3.625, "N"),
		pdbLine("ATOM", 2, "CA", "", "THR", "A", 1, 16.967, 12.784, 4.338, "C"),
		pdbLine("ATOM", 3, "CB", "B", "THR", "A", 1, 1, 1, 1, "C"),
		pdbLine("ATOM", 4, "1HB", "", "THR", "A", 1, 2, 2, 2, ""),
		pdbLine("HETATM", 5, "ZN", "", "ZN", "A", 101, -1.5, 0, 2.25, ""),
		"ENDMDL",
		pdbLine("ATOM", 6, "N", "", "THR", "A", 1, 99, 99, 99, "N"),
	}, "\n")

	atoms, err := ReadPDB(strings.NewReader(input), DefaultRadii(), PDBOptions{})
	require.NoError(t, err)
	require.Len(t, atoms, 4, "alt loc B and the second model are dropped")

	assert.Equal(t, 1, atoms[0].Serial)
	assert.Equal(t, "N", atoms[0].Element)
	assert.Equal(t, "THR", atoms[0].Residue)
	assert.Equal(t, "A", atoms[0].Chain)
	assert.InDelta(t, 1.55, atoms[0].Radius, 1e-12)
	assert.Equal(t, vectors.Vec3{X: 17.047, Y: 14.099, Z: 3.625}, atoms[0].Center)

	assert.Equal(t, "CA", atoms[1].Name)
	assert.Equal(t, "C", atoms[1].Element)

	assert.Equal(t, "H", atoms[2].Element, "inferred from 1HB")
	assert.InDelta(t, 1.20, atoms[2].Radius, 1e-12)

	assert.Equal(t, "ZN", atoms[3].Element, "two-letter symbol for hetero atoms")
	assert.Equal(t, 101, atoms[3].ResSeq)
}

func TestReadPDBSkipHydrogens(t *testing.T) {
	input := strings.Join([]string{
		pdbLine("ATOM", 1, "N", "", "GLY", "A", 1, 0, 0, 0, "N"),
		pdbLine("ATOM", 2, "H", "", "GLY", "A", 1, 1, 0, 0, "H"),
	}, "\n")

	atoms, err := ReadPDB(strings.NewReader(input), DefaultRadii(), PDBOptions{SkipHydrogens: true})
	require.NoError(t, err)
	require.Len(t, atoms, 1)
	assert.Equal(t, "N", atoms[0].Element)
}

func TestReadPDBErrors(t *testing.T) {
	_, err := ReadPDB(strings.NewReader("1 2 3 4\n"), DefaultRadii(), PDBOptions{})
	assert.ErrorIs(t, err, ErrNotPDB)

	bad := pdbLine("ATOM", 1, "N", "", "GLY", "A", 1, 0, 0, 0, "N")
	bad = bad[:30] + "   abcde" + bad[38:]
	_, err = ReadPDB(strings.NewReader(bad), DefaultRadii(), PDBOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPDB)
	assert.Contains(t, err.Error(), "line 1")
}

func TestXYZRRoundTrip(t *testing.T) {
	atoms := []Atom{
		{Center: vectors.Vec3{X: 1, Y: 2, Z: 3}, Radius: 1.5},
		{Center: vectors.Vec3{X: -0.25, Y: 0, Z: 8}, Radius: 0.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXYZR(&buf, atoms))

	got, err := ReadXYZR(strings.NewReader("# header\n\n" + buf.String()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range atoms {
		assert.Equal(t, atoms[i].Center, got[i].Center)
		assert.Equal(t, atoms[i].Radius, got[i].Radius)
		assert.Equal(t, i+1, got[i].Serial)
	}
}

func TestReadXYZRErrors(t *testing.T) {
	cases := map[string]string{
		"too few columns": "1 2 3\n",
		"not a number":    "1 2 x 4\n",
		"negative radius": "1 2 3 -1\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadXYZR(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
	_, err := ReadXYZR(strings.NewReader("# only a comment\n"))
	assert.ErrorIs(t, err, ErrNoAtoms)
}

func TestReadXYZRNonFinite(t *testing.T) {
	cases := map[string]string{
		"nan coordinate": "0 0 0 1.5\nnan 0 0 1.5\n",
		"inf coordinate": "0 0 0 1.5\n0 -Inf 0 1.5\n",
		"nan radius":     "0 0 0 1.5\n1 0 0 NaN\n",
		"inf radius":     "0 0 0 1.5\n1 0 0 +inf\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadXYZR(strings.NewReader(input))
			require.ErrorIs(t, err, ErrNonFinite)
			assert.Contains(t, err.Error(), "line 2")
		})
	}

	// overflowing literals are rejected by the parser itself
	_, err := ReadXYZR(strings.NewReader("1e400 0 0 1\n"))
	assert.Error(t, err)
}

func TestReadPDBNonFinite(t *testing.T) {
	good := pdbLine("ATOM", 1, "N", "", "GLY", "A", 1, 0, 0, 0, "N")
	for _, literal := range []string{"     nan", "    -inf"} {
		bad := pdbLine("ATOM", 2, "CA", "", "GLY", "A", 1, 1, 0, 0, "C")
		bad = bad[:38] + literal + bad[46:]
		_, err := ReadPDB(strings.NewReader(good+"\n"+bad), DefaultRadii(), PDBOptions{})
		require.ErrorIs(t, err, ErrNonFinite, literal)
		assert.Contains(t, err.Error(), "line 2")
	}
}

func TestLoaderFallback(t *testing.T) {
	dir := t.TempDir()

	pdbPath := filepath.Join(dir, "one.pdb")
	require.NoError(t, os.WriteFile(pdbPath,
		[]byte(pdbLine("ATOM", 1, "O", "", "HOH", "W", 1, 0, 0, 0, "O")+"\n"), 0o644))
	xyzrPath := filepath.Join(dir, "two.txt")
	require.NoError(t, os.WriteFile(xyzrPath, []byte("0 0 0 1\n3 0 0 1\n"), 0o644))

	var l Loader
	atoms, err := l.Load(pdbPath)
	require.NoError(t, err)
	require.Len(t, atoms, 1)
	assert.Equal(t, "O", atoms[0].Element)

	atoms, err = l.Load(xyzrPath)
	require.NoError(t, err)
	assert.Len(t, atoms, 2)

	_, err = l.Load(filepath.Join(dir, "missing.pdb"))
	assert.Error(t, err)
}

func TestRadiusTable(t *testing.T) {
	table := DefaultRadii()
	r, ok := table.Lookup("c")
	assert.True(t, ok)
	assert.InDelta(t, 1.70, r, 1e-12)

	r, ok = table.Lookup("Xx")
	assert.False(t, ok)
	assert.Equal(t, DefaultRadius, r)

	table.Override(map[string]float64{"xx": 2.5, "C": 1.9})
	r, ok = table.Lookup("XX")
	assert.True(t, ok)
	assert.Equal(t, 2.5, r)
	r, _ = table.Lookup("C")
	assert.Equal(t, 1.9, r)

	fresh := DefaultRadii()
	r, _ = fresh.Lookup("C")
	assert.InDelta(t, 1.70, r, 1e-12, "overrides do not leak into new tables")
}

func TestBounds(t *testing.T) {
	atoms := []Atom{
		{Center: vectors.Vec3{X: 0, Y: 0, Z: 0}, Radius: 1},
		{Center: vectors.Vec3{X: 4, Y: -2, Z: 1}, Radius: 2},
	}
	min, max := Bounds(atoms)
	assert.Equal(t, vectors.Vec3{X: -2, Y: -4, Z: -2}, min)
	assert.Equal(t, vectors.Vec3{X: 6, Y: 2, Z: 3}, max)
	assert.Equal(t, 2.0, MaxRadius(atoms))

	sub := Subset(atoms, []int{1})
	require.Len(t, sub, 1)
	assert.Equal(t, 4.0, sub[0].Center.X)
}
