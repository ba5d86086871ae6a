package surface

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/echoflaresat/sasprobe/molecule"
)

// DefaultChunkSize is the number of atoms a worker classifies between
// cancellation checks.
const DefaultChunkSize = 64

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid classification options")

// Validate checks the options for values no pass can run with.
func (o Options) Validate() error {
	switch {
	case o.ProbeRadius < 0 || math.IsNaN(o.ProbeRadius) || math.IsInf(o.ProbeRadius, 0):
		return fmt.Errorf("%w: probe radius %g", ErrInvalidOptions, o.ProbeRadius)
	case o.Tolerance < 0 || math.IsNaN(o.Tolerance):
		return fmt.Errorf("%w: tolerance %g", ErrInvalidOptions, o.Tolerance)
	case o.MaxFaces < 0:
		return fmt.Errorf("%w: max faces %d", ErrInvalidOptions, o.MaxFaces)
	case o.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	case o.ChunkSize < 0:
		return fmt.Errorf("%w: chunk size %d", ErrInvalidOptions, o.ChunkSize)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o Options) chunkSize() int {
	if o.ChunkSize == 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

// PassStats summarizes one classification pass.
type PassStats struct {
	Atoms     int
	Surface   int
	Internal  int
	Overflows int
	Engulfed  int

	// Stages counts atoms by the stage that decided them.
	Stages [numStages]int
	// FaceCounts holds the cutting face count of every atom, by index.
	FaceCounts []int
	MaxFaces   int

	CacheHits   int64
	CacheMisses int64

	Duration time.Duration
}

func (s *PassStats) add(r Result) {
	if r.Verdict == Surface {
		s.Surface++
	} else {
		s.Internal++
	}
	if r.Overflow {
		s.Overflows++
	}
	if r.Engulfed {
		s.Engulfed++
	}
	if int(r.Stage) < len(s.Stages) {
		s.Stages[r.Stage]++
	}
	s.MaxFaces = max(s.MaxFaces, r.Faces)
}

func (s *PassStats) merge(o PassStats) {
	s.Surface += o.Surface
	s.Internal += o.Internal
	s.Overflows += o.Overflows
	s.Engulfed += o.Engulfed
	for k := range s.Stages {
		s.Stages[k] += o.Stages[k]
	}
	s.MaxFaces = max(s.MaxFaces, o.MaxFaces)
}

// Run classifies every atom and hands the results to sink. Atoms are split
// into chunks that run on at most Options.Workers goroutines, each with its
// own classifier scratch. Cancelling ctx abandons the pass between chunks;
// the sink then holds a partial pass and must be discarded.
func Run(ctx context.Context, atoms []molecule.Atom, opts Options, sink Sink) (PassStats, error) {
	if err := opts.Validate(); err != nil {
		return PassStats{}, err
	}
	start := time.Now()
	stats := PassStats{Atoms: len(atoms), FaceCounts: make([]int, len(atoms))}
	if opts.PlaneCache != nil {
		opts.PlaneCache.Purge()
	}

	workers := opts.workers()
	chunk := opts.chunkSize()

	// free list of classifiers, one per concurrently running chunk
	classifiers := make(chan *Classifier, workers)
	for w := 0; w < workers; w++ {
		classifiers <- NewClassifier(atoms, opts)
	}

	var (
		mu   sync.Mutex
		done atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < len(atoms); lo += chunk {
		if err := gctx.Err(); err != nil {
			break
		}
		hi := min(lo+chunk, len(atoms))

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := <-classifiers
			defer func() { classifiers <- c }()

			var local PassStats
			for i := lo; i < hi; i++ {
				r := c.Classify(i)
				sink.Put(i, r)
				stats.FaceCounts[i] = r.Faces
				local.add(r)
			}

			mu.Lock()
			stats.merge(local)
			mu.Unlock()

			n := done.Add(int64(hi - lo))
			if opts.Progress != nil {
				opts.Progress(int(n), len(atoms))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return PassStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return PassStats{}, err
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

// Classify runs a pass into a DenseSink and returns the per-atom results.
func Classify(ctx context.Context, atoms []molecule.Atom, opts Options) ([]Result, PassStats, error) {
	sink := NewDenseSink(len(atoms))
	stats, err := Run(ctx, atoms, opts, sink)
	if err != nil {
		return nil, PassStats{}, err
	}
	return sink.Results, stats, nil
}
