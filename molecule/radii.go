package molecule

import "strings"

// DefaultRadius is used for elements missing from the table, in Å.
const DefaultRadius = 1.8

// Bondi van der Waals radii in Å.
// A. Bondi, J. Phys. Chem. 68 (1964) 441; Na/K/Mg from Mantina et al. (2009).
var bondiRadii = map[string]float64{
	"H":  1.20,
	"C":  1.70,
	"N":  1.55,
	"O":  1.52,
	"F":  1.47,
	"P":  1.80,
	"S":  1.80,
	"CL": 1.75,
	"BR": 1.85,
	"I":  1.98,
	"SE": 1.90,
	"NA": 2.27,
	"K":  2.75,
	"MG": 1.73,
	"CA": 2.31,
	"ZN": 1.39,
	"CU": 1.40,
	"FE": 2.00,
	"NI": 1.63,
}

// RadiusTable maps element symbols to van der Waals radii.
// Symbols are case-insensitive.
type RadiusTable struct {
	radii   map[string]float64
	Default float64
}

// DefaultRadii returns a fresh table with the Bondi radii.
func DefaultRadii() *RadiusTable {
	t := &RadiusTable{radii: make(map[string]float64, len(bondiRadii)), Default: DefaultRadius}
	for k, v := range bondiRadii {
		t.radii[k] = v
	}
	return t
}

// Override replaces or adds radii.
func (t *RadiusTable) Override(radii map[string]float64) {
	for k, v := range radii {
		t.radii[normalizeElement(k)] = v
	}
}

// Lookup returns the radius for element and whether it was in the table.
// Unknown elements get the table default.
func (t *RadiusTable) Lookup(element string) (float64, bool) {
	r, ok := t.radii[normalizeElement(element)]
	if !ok {
		return t.Default, false
	}
	return r, true
}

// Known reports whether element has an explicit radius.
func (t *RadiusTable) Known(element string) bool {
	_, ok := t.radii[normalizeElement(element)]
	return ok
}

func normalizeElement(e string) string {
	return strings.ToUpper(strings.TrimSpace(e))
}
