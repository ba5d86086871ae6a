package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/surface"
)

// maxListed caps the atom indices printed for warnings and mismatches.
const maxListed = 20

// WriteText writes a human readable summary. Per-atom verdicts are left to
// the JSON and CSV formats.
func WriteText(w io.Writer, run *Run) error {
	if err := run.check(); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	s := run.Stats

	fmt.Fprintf(tw, "run\t%s\n", run.ID)
	fmt.Fprintf(tw, "source\t%s\n", run.Source)
	fmt.Fprintf(tw, "backend\t%s\n", run.Backend)
	fmt.Fprintf(tw, "probe radius\t%.3f Å\n", run.Settings.ProbeRadius)
	fmt.Fprintf(tw, "atoms\t%d\n", len(run.Atoms))
	if len(run.Atoms) > 0 {
		lo, hi := molecule.Bounds(run.Atoms)
		fmt.Fprintf(tw, "bounds\t%v\t%v\n", lo, hi)
	}
	fmt.Fprintf(tw, "surface\t%d\t%s\n", s.Surface, percent(s.Surface, len(run.Atoms)))
	fmt.Fprintf(tw, "internal\t%d\t%s\n", s.Internal, percent(s.Internal, len(run.Atoms)))
	fmt.Fprintf(tw, "max faces\t%d\n", s.MaxFaces)
	fmt.Fprintf(tw, "elapsed\t%s\n", s.Duration.Round(time.Microsecond))
	if hits, misses := s.CacheHits, s.CacheMisses; hits+misses > 0 {
		fmt.Fprintf(tw, "plane cache\t%d hits\t%d misses\n", hits, misses)
	}
	for stage, n := range s.Stages {
		if n > 0 {
			fmt.Fprintf(tw, "  %s\t%d\n", surface.Stage(stage), n)
		}
	}

	if s.Overflows > 0 {
		fmt.Fprintf(tw, "WARNING\t%d atoms exceeded the face capacity of %d, their verdicts are unreliable: %s\n",
			s.Overflows, run.Settings.MaxFaces, listAtoms(overflowed(run.Results)))
	}

	if run.Layers != nil {
		fmt.Fprintf(tw, "layers\t%d\n", run.Layers.Count())
		for l, members := range run.Layers.Members {
			fmt.Fprintf(tw, "  layer %d\t%d\n", l, len(members))
		}
	}

	if v := run.Validation; v != nil {
		fmt.Fprintf(tw, "validation\t%d atoms\t%d samples\n", len(v.Checked), v.Samples)
		fmt.Fprintf(tw, "sampled area\t%.1f Å²\n", v.Area)
		if v.OK() {
			fmt.Fprintf(tw, "mismatches\tnone\n")
		} else {
			fmt.Fprintf(tw, "mismatches\t%d\t%s\n", len(v.Mismatches), listAtoms(v.Mismatches))
		}
		if len(v.Unconfirmed) > 0 {
			fmt.Fprintf(tw, "unconfirmed\t%d\t%s\n", len(v.Unconfirmed), listAtoms(v.Unconfirmed))
		}
	}
	return tw.Flush()
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

func overflowed(results []surface.Result) []int {
	var out []int
	for i, r := range results {
		if r.Overflow {
			out = append(out, i)
		}
	}
	return out
}

func listAtoms(indices []int) string {
	var b strings.Builder
	for k, i := range indices {
		if k == maxListed {
			fmt.Fprintf(&b, " ... (%d more)", len(indices)-maxListed)
			break
		}
		if k > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", i)
	}
	return b.String()
}
