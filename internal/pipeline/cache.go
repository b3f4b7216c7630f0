package pipeline

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"

	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// Cache memoises detected boundaries and fit results between runs of the
// same input. It is owned by the caller and must not be shared between
// goroutines.
type Cache struct {
	boundaries map[uint64]thermal.Boundaries
	fits       map[uint64]fitEntry
	hits       int
	misses     int
}

type fitEntry struct {
	result  inverse.Result
	history []inverse.IterationRecord
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		boundaries: make(map[uint64]thermal.Boundaries),
		fits:       make(map[uint64]fitEntry),
	}
}

// Len returns the number of memoised fits.
func (c *Cache) Len() int {
	return len(c.fits)
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Reset drops every entry.
func (c *Cache) Reset() {
	clear(c.boundaries)
	clear(c.fits)
	c.hits, c.misses = 0, 0
}

func (c *Cache) getBoundaries(key uint64) (thermal.Boundaries, bool) {
	b, ok := c.boundaries[key]
	c.count(ok)
	return b.Clone(), ok
}

func (c *Cache) putBoundaries(key uint64, b thermal.Boundaries) {
	c.boundaries[key] = b.Clone()
}

func (c *Cache) getFit(key uint64) (*inverse.Result, []inverse.IterationRecord, bool) {
	e, ok := c.fits[key]
	c.count(ok)
	if !ok {
		return nil, nil, false
	}
	res := e.result
	res.PeList = append([]float64(nil), e.result.PeList...)
	res.Deltas = append([]float64(nil), e.result.Deltas...)
	return &res, cloneHistory(e.history), true
}

func (c *Cache) putFit(key uint64, res *inverse.Result, history []inverse.IterationRecord) {
	e := fitEntry{result: *res, history: cloneHistory(history)}
	e.result.PeList = append([]float64(nil), res.PeList...)
	e.result.Deltas = append([]float64(nil), res.Deltas...)
	c.fits[key] = e
}

func cloneHistory(history []inverse.IterationRecord) []inverse.IterationRecord {
	if history == nil {
		return nil
	}
	out := make([]inverse.IterationRecord, len(history))
	for i, r := range history {
		out[i] = r
		out[i].PeList = append([]float64(nil), r.PeList...)
	}
	return out
}

func (c *Cache) count(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// keyHasher builds FNV-64a keys from the values that determine a run.
type keyHasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newKeyHasher() *keyHasher {
	return &keyHasher{h: fnv.New64a()}
}

func (k *keyHasher) float(v float64) *keyHasher {
	binary.LittleEndian.PutUint64(k.buf[:], math.Float64bits(v))
	k.h.Write(k.buf[:])
	return k
}

func (k *keyHasher) uint(v uint64) *keyHasher {
	binary.LittleEndian.PutUint64(k.buf[:], v)
	k.h.Write(k.buf[:])
	return k
}

func (k *keyHasher) floats(vs []float64) *keyHasher {
	k.uint(uint64(len(vs)))
	for _, v := range vs {
		k.float(v)
	}
	return k
}

func (k *keyHasher) str(s string) *keyHasher {
	k.uint(uint64(len(s)))
	k.h.Write([]byte(s))
	return k
}

func (k *keyHasher) sum() uint64 {
	return k.h.Sum64()
}

// detectionKey identifies the profile a detection ran on.
func detectionKey(in Input) uint64 {
	k := newKeyHasher().
		float(in.Physics.ZInf).float(in.Physics.TG0).float(in.Physics.Atg).float(in.Physics.A).
		float(in.Sigma).uint(uint64(in.N)).uint(in.Seed).float(in.peTop()).
		float(in.Post.MergeGap).float(in.Post.MinLength)
	if in.Post.ExtendLast {
		k.uint(1)
	} else {
		k.uint(0)
	}
	if in.Truth != nil {
		k.str("truth").floats(in.Truth.Boundaries.Left).floats(in.Truth.Boundaries.Right).floats(in.Truth.PeList)
	}
	if in.Measurement != nil {
		k.str("measurement").floats(in.Measurement.Depths).floats(in.Measurement.Temps)
	}
	return k.sum()
}

// fitKey extends the detection key with the solver choice.
func fitKey(in Input, detected thermal.Boundaries) uint64 {
	return newKeyHasher().
		uint(detectionKey(in)).
		floats(detected.Left).floats(detected.Right).
		str(string(in.Method)).
		uint(uint64(in.Solver.MaxIterations)).float(in.Solver.FTol).float(in.Solver.XTol).uint(in.Solver.Seed).
		floats(in.Initial).
		sum()
}
