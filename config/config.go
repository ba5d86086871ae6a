// Package config loads sasprobe settings: built-in defaults, overlaid by an
// optional YAML file, then checked with validator struct tags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/surface"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// maxFileSize bounds config files; anything larger is not a config.
const maxFileSize = 1 << 20

var validate = validator.New()

type Config struct {
	Classification Classification `yaml:"classification"`
	Neighbors      Neighbors      `yaml:"neighbors"`
	Radii          Radii          `yaml:"radii"`
	Validation     Validation     `yaml:"validation"`
	Logging        Logging        `yaml:"logging"`
	Metrics        Metrics        `yaml:"metrics"`
}

type Classification struct {
	ProbeRadius    float64 `yaml:"probe_radius" validate:"gte=0,lte=10"`
	Tolerance      float64 `yaml:"tolerance" validate:"gt=0,lt=0.1"`
	MaxFaces       int     `yaml:"max_faces" validate:"gte=0"`
	Workers        int     `yaml:"workers" validate:"gte=0,lte=1024"`
	ChunkSize      int     `yaml:"chunk_size" validate:"gte=1"`
	PlaneCacheSize int     `yaml:"plane_cache_size" validate:"gte=0"`
	DisablePruning bool    `yaml:"disable_pruning"`
	Backend        string  `yaml:"backend" validate:"oneof=cpu serial"`
}

type Neighbors struct {
	Enabled bool `yaml:"enabled"`
	// CellSize of 0 derives the cell from the largest extended radius.
	CellSize float64 `yaml:"cell_size" validate:"gte=0"`
}

type Radii struct {
	Default       float64            `yaml:"default_radius" validate:"gt=0,lte=5"`
	SkipHydrogens bool               `yaml:"skip_hydrogens"`
	Elements      map[string]float64 `yaml:"elements" validate:"dive,keys,min=1,max=2,endkeys,gt=0,lte=5"`
}

type Validation struct {
	Samples int    `yaml:"samples" validate:"gte=1,lte=100000"`
	Atoms   int    `yaml:"atoms" validate:"gte=0"`
	Seed    uint64 `yaml:"seed"`
}

type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type Metrics struct {
	// Textfile, if set, receives the registry in Prometheus text format
	// after every run.
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in settings: a water probe, the Bondi radii
// and the historical face capacity of 200.
func Default() Config {
	return Config{
		Classification: Classification{
			ProbeRadius:    1.4,
			Tolerance:      surface.DefaultTolerance,
			MaxFaces:       200,
			ChunkSize:      surface.DefaultChunkSize,
			PlaneCacheSize: 0,
			Backend:        "cpu",
		},
		Neighbors: Neighbors{Enabled: true},
		Radii:     Radii{Default: molecule.DefaultRadius},
		Validation: Validation{
			Samples: 250,
			Atoms:   20,
			Seed:    1,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if len(data) > maxFileSize {
		return Config{}, fmt.Errorf("config %s: larger than %d bytes", path, maxFileSize)
	}
	if err := cfg.decode(data); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, len(fieldErrs))
			for k, fe := range fieldErrs {
				msgs[k] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ClassifierOptions maps the classification section onto pass options.
// The neighbor filter, cache and logger are left for the caller.
func (c Config) ClassifierOptions() surface.Options {
	cl := c.Classification
	return surface.Options{
		ProbeRadius:    cl.ProbeRadius,
		Tolerance:      cl.Tolerance,
		MaxFaces:       cl.MaxFaces,
		Workers:        cl.Workers,
		ChunkSize:      cl.ChunkSize,
		DisablePruning: cl.DisablePruning,
	}
}

// RadiusTable returns the Bondi table with the configured overrides.
func (c Config) RadiusTable() *molecule.RadiusTable {
	table := molecule.DefaultRadii()
	table.Default = c.Radii.Default
	table.Override(c.Radii.Elements)
	return table
}

// LogLevel parses Logging.Level.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
