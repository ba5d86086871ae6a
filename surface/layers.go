package surface

import (
	"context"
	"fmt"

	"github.com/echoflaresat/sasprobe/molecule"
)

// NeighborhoodFunc builds a neighbor filter for an atom set. ExtractLayers
// calls it once per layer because atom indices change as layers are peeled.
type NeighborhoodFunc func(atoms []molecule.Atom, probe float64) (Neighborhood, error)

// Layers is the onion decomposition of a molecule.
type Layers struct {
	// Layer holds the layer number of every atom; 0 is the outer surface.
	Layer []int
	// Members lists the atom indices of each layer in ascending order.
	Members [][]int
	// Overflows counts unreliable verdicts over all layers.
	Overflows int
}

// Count returns the number of layers.
func (l Layers) Count() int {
	return len(l.Members)
}

// ExtractLayers peels the molecule: the surface atoms form layer 0, they
// are removed and the rest is classified again for layer 1, and so on until
// no atoms remain. opts.Neighborhood is ignored; newNeighborhood, if not
// nil, supplies the filter for each remaining set.
func ExtractLayers(ctx context.Context, backend Backend, atoms []molecule.Atom, opts Options, newNeighborhood NeighborhoodFunc) (Layers, error) {
	return ExtractLayersFrom(ctx, backend, atoms, nil, opts, newNeighborhood)
}

// ExtractLayersFrom is ExtractLayers with layer 0 taken from outer, the
// results of a finished pass over atoms with the same options. Only the
// inner layers are classified. A nil outer classifies layer 0 as well.
func ExtractLayersFrom(ctx context.Context, backend Backend, atoms []molecule.Atom, outer []Result, opts Options, newNeighborhood NeighborhoodFunc) (Layers, error) {
	if outer != nil && len(outer) != len(atoms) {
		return Layers{}, fmt.Errorf("%d outer results for %d atoms", len(outer), len(atoms))
	}
	if backend == nil {
		backend = CPUBackend{}
	}
	out := Layers{Layer: make([]int, len(atoms))}

	remaining := make([]int, len(atoms))
	for i := range remaining {
		remaining[i] = i
	}

	for len(remaining) > 0 {
		layer := len(out.Members)

		var surface, internal []int
		if layer == 0 && outer != nil {
			for i, r := range outer {
				if r.Verdict == Surface {
					surface = append(surface, i)
				} else {
					internal = append(internal, i)
				}
				if r.Overflow {
					out.Overflows++
				}
			}
		} else {
			subset := molecule.Subset(atoms, remaining)
			layerOpts := opts
			layerOpts.Neighborhood = nil
			if newNeighborhood != nil {
				nb, err := newNeighborhood(subset, opts.ProbeRadius)
				if err != nil {
					return Layers{}, fmt.Errorf("layer %d: %w", layer, err)
				}
				layerOpts.Neighborhood = nb
			}

			sink := NewIndexListSink(len(subset))
			stats, err := backend.Run(ctx, subset, layerOpts, sink)
			if err != nil {
				return Layers{}, fmt.Errorf("layer %d: %w", layer, err)
			}
			out.Overflows += stats.Overflows
			surface, internal = sink.Surface(), sink.Internal()
		}

		if len(surface) == 0 {
			// nothing exposed; only reachable through tolerance effects
			surface, internal = internal, nil
		}

		members := make([]int, len(surface))
		for k, local := range surface {
			members[k] = remaining[local]
			out.Layer[members[k]] = layer
		}
		out.Members = append(out.Members, members)

		next := make([]int, len(internal))
		for k, local := range internal {
			next[k] = remaining[local]
		}
		remaining = next
	}
	return out, nil
}
