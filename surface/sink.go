package surface

import (
	"slices"
	"sync/atomic"
)

// Sink receives one result per atom from concurrent workers. Put is called
// exactly once per atom index, in no particular order.
type Sink interface {
	Put(i int, r Result)
}

// DenseSink stores results by atom index. Workers write disjoint slots,
// so no synchronization is needed.
type DenseSink struct {
	Results []Result
}

func NewDenseSink(atomCount int) *DenseSink {
	return &DenseSink{Results: make([]Result, atomCount)}
}

func (s *DenseSink) Put(i int, r Result) {
	s.Results[i] = r
}

// IndexListSink collects surface and internal atom indices into two
// append-only lists. A slot is reserved by bumping an atomic counter
// before it is written. Read the lists only after the pass returns.
type IndexListSink struct {
	surface  []int
	internal []int

	surfaceCount  atomic.Int64
	internalCount atomic.Int64
}

func NewIndexListSink(atomCount int) *IndexListSink {
	return &IndexListSink{
		surface:  make([]int, atomCount),
		internal: make([]int, atomCount),
	}
}

func (s *IndexListSink) Put(i int, r Result) {
	if r.Verdict == Surface {
		slot := s.surfaceCount.Add(1) - 1
		s.surface[slot] = i
		return
	}
	slot := s.internalCount.Add(1) - 1
	s.internal[slot] = i
}

// Surface returns the surface atom indices in ascending order.
func (s *IndexListSink) Surface() []int {
	out := slices.Clone(s.surface[:s.surfaceCount.Load()])
	slices.Sort(out)
	return out
}

// Internal returns the internal atom indices in ascending order.
func (s *IndexListSink) Internal() []int {
	out := slices.Clone(s.internal[:s.internalCount.Load()])
	slices.Sort(out)
	return out
}
