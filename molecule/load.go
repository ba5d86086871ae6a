package molecule

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/exp/mmap"
)

// Loader reads atom sets from files. The zero value uses the Bondi radii
// and the default logger.
type Loader struct {
	Radii         *RadiusTable
	SkipHydrogens bool
	Logger        *slog.Logger
}

// Load reads path as PDB, falling back to XYZR. Files ending in .xyzr
// skip the PDB attempt.
func (l Loader) Load(path string) ([]Atom, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	section := func() io.Reader {
		return io.NewSectionReader(reader, 0, int64(reader.Len()))
	}

	if !strings.EqualFold(filepath.Ext(path), ".xyzr") {
		atoms, err := ReadPDB(section(), l.radii(), PDBOptions{SkipHydrogens: l.SkipHydrogens})
		if err == nil {
			l.reportUnknownElements(path, atoms)
			return atoms, nil
		}
		if !errors.Is(err, ErrNotPDB) {
			l.logger().Warn("failed to load PDB", "path", path, "error", err)
		}
	}

	// fallback to plain xyzr
	return ReadXYZR(section())
}

func (l Loader) reportUnknownElements(path string, atoms []Atom) {
	radii := l.radii()
	unknown := map[string]int{}
	for _, a := range atoms {
		if !radii.Known(a.Element) {
			unknown[a.Element]++
		}
	}
	if len(unknown) == 0 {
		return
	}
	elements := make([]string, 0, len(unknown))
	for e := range unknown {
		elements = append(elements, e)
	}
	sort.Strings(elements)
	for _, e := range elements {
		l.logger().Warn("unknown element, using default radius",
			"path", path, "element", e, "atoms", unknown[e], "radius", radii.Default)
	}
}

func (l Loader) radii() *RadiusTable {
	if l.Radii == nil {
		return DefaultRadii()
	}
	return l.Radii
}

func (l Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}
