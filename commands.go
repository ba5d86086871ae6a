package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/echoflaresat/sasprobe/config"
	"github.com/echoflaresat/sasprobe/metrics"
	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/neighbors"
	"github.com/echoflaresat/sasprobe/report"
	"github.com/echoflaresat/sasprobe/surface"
	"github.com/echoflaresat/sasprobe/validation"
)

var errMismatches = errors.New("sampling contradicts analytic verdicts")

const watchDebounce = 250 * time.Millisecond

// app carries the state shared by all commands of one invocation.
type app struct {
	stdout, stderr io.Writer

	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	format    string
	out       string
	probe     float64
	workers   int
	maxFaces  int
	cacheSize int
	noGrid    bool
	backend   string
	samples   int
	checkN    int

	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sasprobe",
		Short: "Classify molecule atoms as solvent accessible or buried",
		Long: `sasprobe decides for every atom whether a solvent probe can touch it.

Each atom is inflated by the probe radius and cut by the radical planes of
its overlapping neighbors; the atom is on the surface when any part of its
extended sphere survives all cuts.

Input is PDB (ATOM/HETATM records) or XYZR (x y z r per line).`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")

	pf.StringVarP(&a.format, "format", "f", report.FormatText, "report format: text, json or csv")
	pf.StringVarP(&a.out, "out", "o", "", "report file (default stdout)")
	pf.Float64Var(&a.probe, "probe", 0, "probe radius in Å (overrides config)")
	pf.IntVar(&a.workers, "workers", 0, "parallel workers, 0 uses all CPUs (overrides config)")
	pf.IntVar(&a.maxFaces, "max-faces", 0, "cutting face capacity per atom, 0 is unlimited (overrides config)")
	pf.IntVar(&a.cacheSize, "cache", 0, "radical plane cache entries, 0 disables (overrides config)")
	pf.BoolVar(&a.noGrid, "no-grid", false, "test every atom pair instead of using the neighbor grid")
	pf.StringVar(&a.backend, "backend", "", "pass backend: cpu or serial (overrides config)")

	root.AddCommand(a.classifyCmd(), a.layersCmd(), a.validateCmd(), a.watchCmd())
	return root
}

// setup loads the config, applies flag overrides and builds the logger and
// metrics registry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("probe") {
		cfg.Classification.ProbeRadius = a.probe
	}
	if flags.Changed("workers") {
		cfg.Classification.Workers = a.workers
	}
	if flags.Changed("max-faces") {
		cfg.Classification.MaxFaces = a.maxFaces
	}
	if flags.Changed("cache") {
		cfg.Classification.PlaneCacheSize = a.cacheSize
	}
	if flags.Changed("backend") {
		cfg.Classification.Backend = a.backend
	}
	if a.noGrid {
		cfg.Neighbors.Enabled = false
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("samples") {
		cfg.Validation.Samples = a.samples
	}
	if flags.Changed("atoms") {
		cfg.Validation.Atoms = a.checkN
	}
	if a.metricsFile == "" {
		a.metricsFile = cfg.Metrics.Textfile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Logging.Format == "json" {
		a.logger = slog.New(slog.NewJSONHandler(a.stderr, handlerOpts))
	} else {
		a.logger = slog.New(slog.NewTextHandler(a.stderr, handlerOpts))
	}

	a.registry = prometheus.NewRegistry()
	a.metrics, err = metrics.New(a.registry)
	return err
}

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file>",
		Short: "Classify every atom as surface or internal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.classify(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			return a.writeReport(run)
		},
	}
}

func (a *app) layersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers <file>",
		Short: "Peel the molecule into surface layers",
		Long: `Layer 0 is the surface of the whole molecule, taken from the classification
pass. Its atoms are removed and the rest is classified again for layer 1,
until no atoms remain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			run, err := a.classify(ctx, args[0], false)
			if err != nil {
				return err
			}

			opts := a.cfg.ClassifierOptions()
			opts.Logger = a.logger
			var newNeighborhood surface.NeighborhoodFunc
			if a.cfg.Neighbors.Enabled {
				newNeighborhood = a.newGrid
			}
			backend, err := a.passBackend()
			if err != nil {
				return err
			}
			layers, err := surface.ExtractLayersFrom(ctx, backend, run.Atoms, run.Results, opts, newNeighborhood)
			if err != nil {
				return err
			}
			run.Layers = &layers
			a.logger.Info("layers extracted", "path", args[0], "layers", layers.Count())
			return a.writeReport(run)
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Cross-check the classification by sampling the extended spheres",
		Long: `Samples points on the extended sphere of each checked atom. An internal
atom with a clearly exposed sample is a mismatch and fails the command; a
surface atom without any exposed sample is only reported as unconfirmed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			run, err := a.classify(ctx, args[0], true)
			if err != nil {
				return err
			}

			v := a.cfg.Validation
			checked, err := validation.Validate(ctx, run.Atoms, run.Results, validation.Options{
				ProbeRadius: a.cfg.Classification.ProbeRadius,
				Samples:     v.Samples,
				Atoms:       v.Atoms,
				Seed:        v.Seed,
				Workers:     a.cfg.Classification.Workers,
			})
			if err != nil {
				return err
			}
			run.Validation = &checked
			a.metrics.ObserveValidation(checked)

			if err := a.writeReport(run); err != nil {
				return err
			}
			if !checked.OK() {
				a.logger.Error("validation failed", "path", args[0], "mismatches", checked.Mismatches)
				return fmt.Errorf("%w: %d atoms", errMismatches, len(checked.Mismatches))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&a.samples, "samples", 0, "samples per atom (overrides config)")
	cmd.Flags().IntVar(&a.checkN, "atoms", 0, "atoms to check, 0 checks all (overrides config)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Classify again whenever the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			rerun := func() error {
				run, err := a.classify(ctx, path, false)
				if err != nil {
					return err
				}
				if err := a.writeReport(run); err != nil {
					return err
				}
				return a.writeMetrics()
			}

			w, err := newFileWatcher(path, watchDebounce, a.logger)
			if err != nil {
				return err
			}
			if err := rerun(); err != nil {
				a.logger.Error("classification failed", "path", path, "error", err)
			}
			a.logger.Info("watching for changes", "path", path)
			return w.Run(ctx, rerun)
		},
	}
}

// classify loads path and runs one pass over it.
func (a *app) classify(ctx context.Context, path string, showProgress bool) (*report.Run, error) {
	loader := molecule.Loader{
		Radii:         a.cfg.RadiusTable(),
		SkipHydrogens: a.cfg.Radii.SkipHydrogens,
		Logger:        a.logger,
	}
	atoms, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	opts := a.cfg.ClassifierOptions()
	opts.Logger = a.logger
	if a.cfg.Neighbors.Enabled && len(atoms) > 0 {
		grid, err := a.newGrid(atoms, opts.ProbeRadius)
		if err != nil {
			return nil, err
		}
		opts.Neighborhood = grid
	}
	if size := a.cfg.Classification.PlaneCacheSize; size > 0 {
		if opts.PlaneCache, err = surface.NewPlaneCache(size); err != nil {
			return nil, err
		}
	}
	if showProgress && isTerminal(a.stderr) {
		fmt.Fprintf(a.stderr, "Classifying %s ", path)
		opts.Progress = newProgressPrinter(a.stderr).update
	}

	backend, err := a.passBackend()
	if err != nil {
		return nil, err
	}

	settings := report.SettingsFrom(opts)
	settings.PlaneCache = a.cfg.Classification.PlaneCacheSize
	run := report.NewRun(path, backend.Name(), settings)
	run.Atoms = atoms

	sink := surface.NewDenseSink(len(atoms))
	stats, err := backend.Run(ctx, atoms, opts, sink)
	if err != nil {
		return nil, err
	}
	run.Results = sink.Results
	run.Stats = stats
	a.metrics.ObservePass(backend.Name(), stats)

	a.logger.Info("classified",
		"path", path,
		"run", run.ID,
		"atoms", stats.Atoms,
		"surface", stats.Surface,
		"internal", stats.Internal,
		"elapsed", stats.Duration)
	return run, nil
}

// newGrid builds the neighbor grid for atoms. A configured cell size only
// ever grows the cell; smaller cells would miss overlapping neighbors.
func (a *app) newGrid(atoms []molecule.Atom, probe float64) (surface.Neighborhood, error) {
	cell := max(a.cfg.Neighbors.CellSize, neighbors.CellSizeFor(atoms, probe))
	grid, err := neighbors.NewGrid(atoms, cell)
	if err != nil {
		return nil, err
	}
	return grid, nil
}

func (a *app) passBackend() (surface.Backend, error) {
	backend, ok := surface.BackendByName(a.cfg.Classification.Backend)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", a.cfg.Classification.Backend)
	}
	return backend, nil
}

func (a *app) writeReport(run *report.Run) error {
	if a.out == "" {
		return report.Write(a.stdout, a.format, run)
	}
	f, err := os.Create(a.out)
	if err != nil {
		return err
	}
	if err := report.Write(f, a.format, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) writeMetrics() error {
	if a.metricsFile == "" || a.registry == nil {
		return nil
	}
	return metrics.WriteTextfile(a.metricsFile, a.registry)
}
