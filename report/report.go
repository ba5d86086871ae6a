// Package report renders classification runs as a text summary, JSON or
// one CSV row per atom.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/surface"
	"github.com/echoflaresat/sasprobe/validation"
)

// ErrUnknownFormat is returned by Write for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Formats lists the supported formats.
var Formats = []string{FormatText, FormatJSON, FormatCSV}

// Settings records the options a run was made with.
type Settings struct {
	ProbeRadius    float64 `json:"probe_radius"`
	Tolerance      float64 `json:"tolerance"`
	MaxFaces       int     `json:"max_faces"`
	Workers        int     `json:"workers,omitempty"`
	DisablePruning bool    `json:"disable_pruning,omitempty"`
	Grid           bool    `json:"grid"`
	PlaneCache     int     `json:"plane_cache,omitempty"`
}

// SettingsFrom copies the reportable fields of opts.
func SettingsFrom(opts surface.Options) Settings {
	tol := opts.Tolerance
	if tol == 0 {
		tol = surface.DefaultTolerance
	}
	return Settings{
		ProbeRadius:    opts.ProbeRadius,
		Tolerance:      tol,
		MaxFaces:       opts.MaxFaces,
		Workers:        opts.Workers,
		DisablePruning: opts.DisablePruning,
		Grid:           opts.Neighborhood != nil,
	}
}

// Run is everything known about one classification run. Layers and
// Validation are optional.
type Run struct {
	ID        uuid.UUID
	Source    string
	Backend   string
	StartedAt time.Time
	Settings  Settings

	Atoms   []molecule.Atom
	Results []surface.Result
	Stats   surface.PassStats

	Layers     *surface.Layers
	Validation *validation.Report
}

// NewRun starts a run record with a fresh identifier.
func NewRun(source, backend string, settings Settings) *Run {
	return &Run{
		ID:        uuid.New(),
		Source:    source,
		Backend:   backend,
		StartedAt: time.Now().UTC(),
		Settings:  settings,
	}
}

func (r *Run) check() error {
	if len(r.Results) != len(r.Atoms) {
		return fmt.Errorf("report: %d results for %d atoms", len(r.Results), len(r.Atoms))
	}
	if r.Layers != nil && len(r.Layers.Layer) != len(r.Atoms) {
		return fmt.Errorf("report: %d layer numbers for %d atoms", len(r.Layers.Layer), len(r.Atoms))
	}
	return nil
}

// layer returns the layer of atom i, or -1 without layers.
func (r *Run) layer(i int) int {
	if r.Layers == nil {
		return -1
	}
	return r.Layers.Layer[i]
}

// Write renders run to w in format.
func Write(w io.Writer, format string, run *Run) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return WriteText(w, run)
	case FormatJSON:
		return WriteJSON(w, run)
	case FormatCSV:
		return WriteCSV(w, run)
	default:
		return fmt.Errorf("%w %q, want one of %s", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
}
