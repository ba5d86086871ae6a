package surface

import (
	"context"
	"time"

	"github.com/echoflaresat/sasprobe/molecule"
)

// Backend executes a classification pass. Every backend must produce the
// same verdicts for the same input.
type Backend interface {
	Name() string
	Run(ctx context.Context, atoms []molecule.Atom, opts Options, sink Sink) (PassStats, error)
}

// CPUBackend runs chunks of atoms on a bounded pool of goroutines.
type CPUBackend struct{}

func (CPUBackend) Name() string { return "cpu" }

func (CPUBackend) Run(ctx context.Context, atoms []molecule.Atom, opts Options, sink Sink) (PassStats, error) {
	return Run(ctx, atoms, opts, sink)
}

// SerialBackend classifies atoms one after another with a single
// classifier. It is the reference the parallel backend is checked against.
type SerialBackend struct{}

func (SerialBackend) Name() string { return "serial" }

func (SerialBackend) Run(ctx context.Context, atoms []molecule.Atom, opts Options, sink Sink) (PassStats, error) {
	if err := opts.Validate(); err != nil {
		return PassStats{}, err
	}
	start := time.Now()
	if opts.PlaneCache != nil {
		opts.PlaneCache.Purge()
	}

	stats := PassStats{Atoms: len(atoms), FaceCounts: make([]int, len(atoms))}
	c := NewClassifier(atoms, opts)
	for i := range atoms {
		if i%opts.chunkSize() == 0 {
			if err := ctx.Err(); err != nil {
				return PassStats{}, err
			}
		}
		r := c.Classify(i)
		sink.Put(i, r)
		stats.FaceCounts[i] = r.Faces
		stats.add(r)
	}
	if opts.Progress != nil {
		opts.Progress(len(atoms), len(atoms))
	}

	if opts.PlaneCache != nil {
		stats.CacheHits, stats.CacheMisses = opts.PlaneCache.Stats()
	}
	stats.Duration = time.Since(start)
	if stats.Overflows > 0 {
		opts.logger().Warn("cutting face capacity exceeded, verdicts unreliable",
			"atoms", stats.Overflows, "max_faces", opts.MaxFaces)
	}
	return stats, nil
}

// BackendByName returns the backend registered under name.
func BackendByName(name string) (Backend, bool) {
	switch name {
	case "", "cpu":
		return CPUBackend{}, true
	case "serial":
		return SerialBackend{}, true
	default:
		return nil, false
	}
}
