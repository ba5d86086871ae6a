package surface

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/echoflaresat/sasprobe/molecule"
)

// PlaneCache keeps the radical planes of recently seen atom pairs so the
// second atom of a pair reuses the first atom's work. A miss computes the
// plane once and stores it for both atoms. Entries are only
// valid for one atom set and probe radius; a pass purges the cache before
// it starts, so a cache must not be shared by concurrent passes.
type PlaneCache struct {
	cache *lru.Cache // pairKey -> pairFaces

	hits   atomic.Int64
	misses atomic.Int64
}

// pairFaces holds both sides of one pair, seen from the lower index.
type pairFaces struct {
	lo, hi               Face
	loContact, hiContact Contact
}

// cutAtomPair builds both sides of the pair from one radical plane.
func cutAtomPair(atoms []molecule.Atom, lo, hi int, probe, tol float64) pairFaces {
	rlo, rhi := atoms[lo].ExtendedRadius(probe), atoms[hi].ExtendedRadius(probe)
	var pf pairFaces
	pf.lo, pf.loContact, pf.hi, pf.hiContact = cutPair(atoms[lo].Center, rlo, atoms[hi].Center, rhi, tol*rlo, tol*rhi)
	pf.lo.Neighbor = hi
	pf.hi.Neighbor = lo
	return pf
}

// NewPlaneCache returns a cache holding up to size pairs.
func NewPlaneCache(size int) (*PlaneCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("plane cache: %w", err)
	}
	return &PlaneCache{cache: cache}, nil
}

// Purge drops all entries and resets the counters.
func (pc *PlaneCache) Purge() {
	pc.cache.Purge()
	pc.hits.Store(0)
	pc.misses.Store(0)
}

// Stats returns the hit and miss counts since the last purge.
func (pc *PlaneCache) Stats() (hits, misses int64) {
	return pc.hits.Load(), pc.misses.Load()
}

// Len returns the number of cached pairs.
func (pc *PlaneCache) Len() int {
	return pc.cache.Len()
}

func pairKey(lo, hi int) uint64 {
	return uint64(uint32(lo))<<32 | uint64(uint32(hi))
}

// face returns the face j cuts from i.
func (pc *PlaneCache) face(atoms []molecule.Atom, i, j int, probe, tol float64) (Face, Contact) {
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	key := pairKey(lo, hi)

	var pf pairFaces
	if v, ok := pc.cache.Get(key); ok {
		pc.hits.Add(1)
		pf = v.(pairFaces)
	} else {
		pc.misses.Add(1)
		pf = cutAtomPair(atoms, lo, hi, probe, tol)
		pc.cache.Add(key, pf)
	}

	if i == lo {
		return pf.lo, pf.loContact
	}
	return pf.hi, pf.hiContact
}
