// Package surface decides, exactly and per atom, whether an atom's solvent
// extended sphere has any part not buried inside its neighbors.
//
// For a target atom every overlapping neighbor contributes a cutting face,
// the radical plane of the two extended spheres. The atom is exposed iff
// the intersection of the kept half-spaces still touches its sphere. The
// classifier prunes faces that are covered by others, then looks for a
// witness point: a vertex where two face rims meet, or a point on a rim
// that no vertex bounds. No witness means the atom is internal.
package surface

import (
	"log/slog"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/vectors"
)

// DefaultTolerance is the boundary slack relative to the extended radius.
const DefaultTolerance = 1e-6

// Verdict is the classification of one atom.
type Verdict uint8

const (
	Surface Verdict = iota
	Internal
)

func (v Verdict) String() string {
	switch v {
	case Surface:
		return "surface"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Stage records which step of the classifier decided the verdict.
type Stage uint8

const (
	// StageNoFaces: no neighbor overlaps the atom.
	StageNoFaces Stage = iota
	// StageEngulfed: a neighbor's extended sphere contains the atom's.
	StageEngulfed
	// StagePruned: two non-crossing faces together cut the whole sphere.
	StagePruned
	// StageEndpoint: a rim vertex survived every face.
	StageEndpoint
	// StageRim: a face rim without vertices is exposed.
	StageRim
	// StageUncut: faces exist but none reaches the sphere.
	StageUncut
	// StageEnclosed: no witness point survived.
	StageEnclosed

	numStages = int(StageEnclosed) + 1
)

var stageNames = [numStages]string{
	StageNoFaces:  "no-faces",
	StageEngulfed: "engulfed",
	StagePruned:   "pruned",
	StageEndpoint: "endpoint",
	StageRim:      "rim",
	StageUncut:    "uncut",
	StageEnclosed: "enclosed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Result is the outcome for one atom.
type Result struct {
	Verdict Verdict
	Stage   Stage

	Faces     int // cutting faces built
	LiveFaces int // faces left after pruning

	// Overflow marks a verdict computed from a truncated face list; it is
	// unreliable and may report Surface for an internal atom.
	Overflow bool
	Engulfed bool
}

// Neighborhood restricts the atoms considered as neighbors of atom i.
// Candidates must return a superset of the atoms whose extended spheres
// can overlap atom i's, appended to dst, never including i.
type Neighborhood interface {
	Candidates(i int, dst []int) []int
}

// Options configures a classification pass.
type Options struct {
	ProbeRadius float64
	// Tolerance is the boundary slack relative to the extended radius.
	// Zero means DefaultTolerance.
	Tolerance float64
	// MaxFaces caps the faces built per atom. Zero means unbounded.
	MaxFaces int

	Workers   int
	ChunkSize int

	// DisablePruning skips the domination stage. Verdicts are unchanged.
	DisablePruning bool

	// Neighborhood is nil to scan every atom.
	Neighborhood Neighborhood
	// PlaneCache, if set, shares radical planes between the two atoms of a pair.
	PlaneCache *PlaneCache

	// Progress is called from worker goroutines after every chunk.
	Progress func(done, total int)
	Logger   *slog.Logger
}

func (o Options) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Classifier holds the scratch buffers for classifying atoms one at a time.
// It is not safe for concurrent use; a pass gives each worker its own.
type Classifier struct {
	atoms []molecule.Atom
	opts  Options

	faces      []Face
	live       []int
	dominated  []bool
	candidates []int
	roots      []float64
}

// NewClassifier returns a classifier over atoms. The atoms must not change
// while it is in use.
func NewClassifier(atoms []molecule.Atom, opts Options) *Classifier {
	return &Classifier{atoms: atoms, opts: opts}
}

// sphere is the extended sphere of the atom being classified along with
// the tolerances derived from its radius.
type sphere struct {
	center  vectors.Vec3
	radius  float64
	eps     float64 // half-space slack
	discTol float64 // line/sphere discriminant slack
}

func (c *Classifier) sphereOf(i int) sphere {
	r := c.atoms[i].ExtendedRadius(c.opts.ProbeRadius)
	tol := c.opts.tolerance()
	return sphere{
		center:  c.atoms[i].Center,
		radius:  r,
		eps:     tol * r,
		discTol: tol * r * r,
	}
}

// Classify decides atom i.
func (c *Classifier) Classify(i int) Result {
	build := c.buildFaces(i)
	res := Result{Faces: len(c.faces), Overflow: build.overflow}

	switch {
	case build.engulfed:
		res.Verdict, res.Stage, res.Engulfed = Internal, StageEngulfed, true
		return res
	case len(c.faces) == 0:
		res.Verdict, res.Stage = Surface, StageNoFaces
		return res
	}

	s := c.sphereOf(i)
	c.resetLive()
	if !c.opts.DisablePruning && c.prune(s) {
		res.Verdict, res.Stage = Internal, StagePruned
		res.LiveFaces = len(c.live)
		return res
	}
	res.LiveFaces = len(c.live)

	if c.testEndpoints(s) {
		res.Verdict, res.Stage = Surface, StageEndpoint
		return res
	}
	switch c.testRims(s) {
	case rimExposed:
		res.Verdict, res.Stage = Surface, StageRim
	case noRims:
		res.Verdict, res.Stage = Surface, StageUncut
	default:
		res.Verdict, res.Stage = Internal, StageEnclosed
	}
	return res
}

// Faces returns the cutting faces of atom i, in neighbor order. The slice
// is owned by the classifier and valid until the next call.
func (c *Classifier) Faces(i int) []Face {
	c.buildFaces(i)
	return c.faces
}

func (c *Classifier) resetLive() {
	c.live = c.live[:0]
	for k := range c.faces {
		c.live = append(c.live, k)
	}
}
