// Package thermal evaluates the steady-state temperature of a wellbore made of
// open (flowing) and sealed segments.
package thermal

import (
	"errors"
	"fmt"
)

// Physics groups the constants of the heat-transfer problem that are shared by
// every segment of a well.
type Physics struct {
	ZInf float64 `json:"z_inf" yaml:"z_inf"` // asymptotic reference depth, far below any segment
	TG0  float64 `json:"tg0" yaml:"tg0"`     // undisturbed temperature at the surface
	Atg  float64 `json:"atg" yaml:"atg"`     // geothermal gradient
	A    float64 `json:"a" yaml:"a"`         // heat-transfer coefficient
}

// DefaultPhysics returns the constants used by the synthetic scenarios.
func DefaultPhysics() Physics {
	return Physics{
		ZInf: 100000,
		TG0:  1,
		Atg:  0.0001,
		A:    5,
	}
}

// Boundaries lists the open segments of a well. Segment i spans
// [Left[i], Right[i]]; the gaps between consecutive segments are sealed.
type Boundaries struct {
	Left  []float64 `json:"left" yaml:"left"`
	Right []float64 `json:"right" yaml:"right"`
}

// Len returns the number of open segments.
func (b Boundaries) Len() int {
	return len(b.Left)
}

// Span returns the depth range covered by the segments.
func (b Boundaries) Span() (lo, hi float64) {
	if len(b.Left) == 0 || len(b.Right) == 0 {
		return 0, 0
	}
	return b.Left[0], b.Right[len(b.Right)-1]
}

// Clone returns a deep copy.
func (b Boundaries) Clone() Boundaries {
	return Boundaries{
		Left:  append([]float64(nil), b.Left...),
		Right: append([]float64(nil), b.Right...),
	}
}

var (
	ErrInvalidPhysics      = errors.New("invalid physical constants")
	ErrBoundaryMismatch    = errors.New("left and right boundary counts differ")
	ErrNegativeBoundary    = errors.New("boundary depth is negative")
	ErrUnorderedBoundaries = errors.New("boundaries are not ordered")
	ErrPeCountMismatch     = errors.New("Pe count does not match segment count")
	ErrNegativePe          = errors.New("Pe is negative")
)

// ValidatePhysics checks the constants on their own.
func ValidatePhysics(p Physics) error {
	switch {
	case p.A <= 0:
		return fmt.Errorf("%w: A must be positive, got %g", ErrInvalidPhysics, p.A)
	case p.ZInf <= 0:
		return fmt.Errorf("%w: zInf must be positive, got %g", ErrInvalidPhysics, p.ZInf)
	case p.TG0 < 0:
		return fmt.Errorf("%w: TG0 must be non-negative, got %g", ErrInvalidPhysics, p.TG0)
	case p.Atg < 0:
		return fmt.Errorf("%w: atg must be non-negative, got %g", ErrInvalidPhysics, p.Atg)
	}
	return nil
}

// ValidateBoundaries checks that the segments are non-negative, ordered and
// non-overlapping. Adjacent segments may touch.
func ValidateBoundaries(b Boundaries) error {
	if len(b.Left) != len(b.Right) {
		return fmt.Errorf("%w: %d left, %d right", ErrBoundaryMismatch, len(b.Left), len(b.Right))
	}
	for i := range b.Left {
		if b.Left[i] < 0 || b.Right[i] < 0 {
			return fmt.Errorf("%w: segment %d [%g, %g]", ErrNegativeBoundary, i, b.Left[i], b.Right[i])
		}
		if b.Left[i] > b.Right[i] {
			return fmt.Errorf("%w: segment %d starts at %g after it ends at %g", ErrUnorderedBoundaries, i, b.Left[i], b.Right[i])
		}
		if i > 0 && b.Left[i] < b.Right[i-1] {
			return fmt.Errorf("%w: segment %d starts at %g inside segment %d", ErrUnorderedBoundaries, i, b.Left[i], i-1)
		}
	}
	return nil
}

// Validate checks a complete well description: constants, boundaries and one
// non-negative Pe per segment. The asymptotic depth must lie below the deepest
// boundary.
func Validate(b Boundaries, pe []float64, p Physics) error {
	if err := ValidatePhysics(p); err != nil {
		return err
	}
	if err := ValidateBoundaries(b); err != nil {
		return err
	}
	if len(pe) != b.Len() {
		return fmt.Errorf("%w: %d values for %d segments", ErrPeCountMismatch, len(pe), b.Len())
	}
	for i, v := range pe {
		if v < 0 {
			return fmt.Errorf("%w: Pe[%d] = %g", ErrNegativePe, i, v)
		}
	}
	if _, hi := b.Span(); b.Len() > 0 && hi >= p.ZInf {
		return fmt.Errorf("%w: zInf %g must exceed the deepest boundary %g", ErrInvalidPhysics, p.ZInf, hi)
	}
	return nil
}
