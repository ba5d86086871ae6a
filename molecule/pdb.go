package molecule

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/echoflaresat/sasprobe/vectors"
)

// ErrNotPDB is returned when the input holds no ATOM or HETATM records.
var ErrNotPDB = errors.New("no PDB atom records")

// Fixed column ranges of ATOM/HETATM records, 0-based half-open.
// https://www.wwpdb.org/documentation/file-format-content/format33/sect9.html#ATOM
var (
	colSerial  = [2]int{6, 11}
	colName    = [2]int{12, 16}
	colAltLoc  = [2]int{16, 17}
	colResName = [2]int{17, 20}
	colChain   = [2]int{21, 22}
	colResSeq  = [2]int{22, 26}
	colX       = [2]int{30, 38}
	colY       = [2]int{38, 46}
	colZ       = [2]int{46, 54}
	colElement = [2]int{76, 78}
)

// PDBOptions controls which records ReadPDB keeps.
type PDBOptions struct {
	SkipHydrogens bool
}

// ReadPDB parses the first model of a PDB file. Radii come from radii.
// Alternate locations other than blank or 'A' are dropped.
func ReadPDB(r io.Reader, radii *RadiusTable, opts PDBOptions) ([]Atom, error) {
	var atoms []Atom
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		record := strings.TrimSpace(field(line, [2]int{0, 6}))

		switch record {
		case "ATOM", "HETATM":
		case "ENDMDL", "END":
			if len(atoms) > 0 {
				return atoms, nil
			}
			continue
		default:
			continue
		}

		if alt := field(line, colAltLoc); alt != " " && alt != "" && alt != "A" {
			continue
		}

		atom, err := parseAtomRecord(line, record == "HETATM", radii)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if opts.SkipHydrogens && (atom.Element == "H" || atom.Element == "D") {
			continue
		}
		atoms = append(atoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return nil, ErrNotPDB
	}
	return atoms, nil
}

func parseAtomRecord(line string, hetero bool, radii *RadiusTable) (Atom, error) {
	x, err := parseCoord(line, colX)
	if err != nil {
		return Atom{}, err
	}
	y, err := parseCoord(line, colY)
	if err != nil {
		return Atom{}, err
	}
	z, err := parseCoord(line, colZ)
	if err != nil {
		return Atom{}, err
	}

	serial, _ := strconv.Atoi(strings.TrimSpace(field(line, colSerial)))
	resSeq, _ := strconv.Atoi(strings.TrimSpace(field(line, colResSeq)))
	name := strings.TrimSpace(field(line, colName))

	element := normalizeElement(field(line, colElement))
	if element == "" {
		element = inferElement(name, hetero, radii)
	}
	radius, _ := radii.Lookup(element)

	return Atom{
		Center:  vectors.Vec3{X: x, Y: y, Z: z},
		Radius:  radius,
		Serial:  serial,
		Name:    name,
		Element: element,
		Residue: strings.TrimSpace(field(line, colResName)),
		ResSeq:  resSeq,
		Chain:   strings.TrimSpace(field(line, colChain)),
	}, nil
}

func parseCoord(line string, col [2]int) (float64, error) {
	s := strings.TrimSpace(field(line, col))
	if s == "" {
		return 0, fmt.Errorf("missing coordinate in columns %d-%d", col[0]+1, col[1])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("coordinate %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("coordinate %q: %w", s, ErrNonFinite)
	}
	return v, nil
}

// inferElement guesses the element from an atom name when the element
// columns are blank. Leading digits ("1HB") are skipped. Two-letter
// symbols are only tried for hetero atoms, since in ATOM records "CA" is
// the alpha carbon, not calcium.
func inferElement(name string, hetero bool, radii *RadiusTable) string {
	letters := strings.TrimLeftFunc(name, unicode.IsDigit)
	letters = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, letters)
	if letters == "" {
		return ""
	}
	if hetero && len(letters) >= 2 && radii.Known(letters[:2]) {
		return letters[:2]
	}
	return letters[:1]
}

// field returns line[col[0]:col[1]], clipped to the line length.
func field(line string, col [2]int) string {
	if col[0] >= len(line) {
		return ""
	}
	end := col[1]
	if end > len(line) {
		end = len(line)
	}
	return line[col[0]:end]
}
