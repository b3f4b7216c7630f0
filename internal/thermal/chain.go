package thermal

import (
	"fmt"
	"sort"
)

// BoundaryTemperatures computes the continuity temperatures of a segment chain.
// The result has one more element than pe: T[0] is initial and T[i+1] is the
// temperature at the right boundary of segment i, which becomes the left
// boundary condition of segment i+1.
func BoundaryTemperatures(b Boundaries, pe []float64, p Physics, initial float64) ([]float64, error) {
	if len(b.Left) != len(b.Right) {
		return nil, fmt.Errorf("%w: %d left, %d right", ErrBoundaryMismatch, len(b.Left), len(b.Right))
	}
	if len(pe) != b.Len() {
		return nil, fmt.Errorf("%w: %d values for %d segments", ErrPeCountMismatch, len(pe), b.Len())
	}
	if err := ValidatePhysics(p); err != nil {
		return nil, err
	}

	t := make([]float64, len(pe)+1)
	t[0] = initial
	for i := range pe {
		t[i+1] = TsGLin(b.Right[i], p, pe[i], b.Left[i], t[i])
	}
	return t, nil
}

// Chain is an evaluated segment chain ready for profile lookups.
type Chain struct {
	Boundaries Boundaries
	Pe         []float64
	T          []float64
	Physics    Physics
}

// NewChain folds the continuity temperatures once, starting from zero at the
// top of the first segment.
func NewChain(b Boundaries, pe []float64, p Physics) (*Chain, error) {
	t, err := BoundaryTemperatures(b, pe, p, 0)
	if err != nil {
		return nil, err
	}
	return &Chain{Boundaries: b, Pe: pe, T: t, Physics: p}, nil
}

// At returns the temperature at depth z. Inside segment i the open-segment
// solution applies on [Left[i], Right[i]), the last segment being closed on
// both ends. Sealed gaps hold the continuity temperature of the segment
// above them. Depths above the first segment take T[0] and depths below the
// last take the final continuity temperature.
func (c *Chain) At(z float64) float64 {
	left := c.Boundaries.Left
	k := len(left)
	if k == 0 {
		return c.T[0]
	}

	// last segment whose left boundary is at or above z
	i := sort.Search(k, func(j int) bool { return left[j] > z }) - 1
	if i < 0 {
		return c.T[0]
	}

	right := c.Boundaries.Right[i]
	if z < right || (i == k-1 && z == right) {
		return TsGLin(z, c.Physics, c.Pe[i], left[i], c.T[i])
	}
	return c.T[i+1]
}

// Profile evaluates the chain at every depth.
func (c *Chain) Profile(z []float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = c.At(v)
	}
	return out
}

// Profile evaluates the full piecewise temperature for a boundary set and one
// Pe per segment.
func Profile(z []float64, b Boundaries, pe []float64, p Physics) ([]float64, error) {
	c, err := NewChain(b, pe, p)
	if err != nil {
		return nil, err
	}
	return c.Profile(z), nil
}
