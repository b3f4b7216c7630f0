package inverse

import (
	"math"

	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// Reconstruct turns drops between consecutive segments into the Pe of every
// segment. pe[0] is peTop and pe[k-1] is exactly zero; interior values are
// peTop minus the running sum of deltas, floored at zero so the sequence never
// increases with depth. deltas must hold k-2 values.
func Reconstruct(deltas []float64, peTop float64, k int) []float64 {
	switch {
	case k <= 0:
		return nil
	case k == 1:
		return []float64{peTop}
	}

	pe := make([]float64, k)
	pe[0] = peTop
	for i := 1; i < k-1; i++ {
		pe[i] = math.Max(0, pe[i-1]-deltas[i-1])
	}
	pe[k-1] = 0
	return pe
}

// Deltas is the inverse of Reconstruct for a non-increasing interior guess:
// it returns the k-2 free drops that lead from peTop through interior.
func Deltas(interior []float64, peTop float64) []float64 {
	d := make([]float64, len(interior))
	prev := peTop
	for i, pe := range interior {
		d[i] = clamp(prev-pe, 0, peTop)
		prev = pe
	}
	return d
}

// The solvers work on unbounded angles u; each maps onto a delta in
// [0, peTop] through delta = peTop·(sin u + 1)/2.
func toDelta(u, peTop float64) float64 {
	return peTop * (math.Sin(u) + 1) / 2
}

func fromDelta(d, peTop float64) float64 {
	if peTop == 0 {
		return 0
	}
	// keep away from the poles where the mapping is flat
	return math.Asin(clamp(2*d/peTop-1, -0.999, 0.999))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// objective evaluates the residual of a candidate on the observed profile. It
// is shared unchanged by every solver.
type objective struct {
	depths     []float64
	observed   []float64
	boundaries thermal.Boundaries
	physics    thermal.Physics
	peTop      float64
	k          int
	evals      int
}

func newObjective(p Problem) *objective {
	return &objective{
		depths:     p.Depths,
		observed:   p.Observed,
		boundaries: p.Boundaries,
		physics:    p.Physics,
		peTop:      p.PeTop,
		k:          p.Boundaries.Len(),
	}
}

func (o *objective) deltas(u []float64) []float64 {
	d := make([]float64, len(u))
	for i, v := range u {
		d[i] = toDelta(v, o.peTop)
	}
	return d
}

func (o *objective) peList(u []float64) []float64 {
	return Reconstruct(o.deltas(u), o.peTop, o.k)
}

// residuals writes model − observed into dst.
func (o *objective) residuals(dst, u []float64) {
	o.evals++
	chain, err := thermal.NewChain(o.boundaries, o.peList(u), o.physics)
	if err != nil {
		for i := range dst {
			dst[i] = math.NaN()
		}
		return
	}
	for i, z := range o.depths {
		dst[i] = chain.At(z) - o.observed[i]
	}
}

// loss is the sum of squared residuals. Non-finite values map to +Inf so that
// every solver rejects them.
func (o *objective) loss(u []float64) float64 {
	r := make([]float64, len(o.observed))
	o.residuals(r, u)
	return sumSquares(r)
}

func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}
