package molecule

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/echoflaresat/sasprobe/vectors"
)

// ErrNoAtoms is returned for inputs that parse but contain no atoms.
var ErrNoAtoms = errors.New("no atoms")

// ErrNonFinite is returned for NaN or infinite coordinates and radii.
var ErrNonFinite = errors.New("non-finite value")

// ReadXYZR parses whitespace separated "x y z r" lines. Blank lines and
// lines starting with '#' are skipped; extra trailing columns are ignored.
func ReadXYZR(r io.Reader) ([]Atom, error) {
	var atoms []Atom
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: expected 4 columns, got %d", lineNo, len(fields))
		}
		var v [4]float64
		for k := range v {
			f, err := strconv.ParseFloat(fields[k], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, k+1, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("line %d column %d: %w %q", lineNo, k+1, ErrNonFinite, fields[k])
			}
			v[k] = f
		}
		if v[3] < 0 {
			return nil, fmt.Errorf("line %d: negative radius %g", lineNo, v[3])
		}

		atoms = append(atoms, Atom{
			Center: vectors.Vec3{X: v[0], Y: v[1], Z: v[2]},
			Radius: v[3],
			Serial: len(atoms) + 1,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return nil, ErrNoAtoms
	}
	return atoms, nil
}

// WriteXYZR writes atoms in the format read by ReadXYZR.
func WriteXYZR(w io.Writer, atoms []Atom) error {
	bw := bufio.NewWriter(w)
	for _, a := range atoms {
		if _, err := fmt.Fprintf(bw, "%.4f %.4f %.4f %.4f\n", a.Center.X, a.Center.Y, a.Center.Z, a.Radius); err != nil {
			return err
		}
	}
	return bw.Flush()
}
