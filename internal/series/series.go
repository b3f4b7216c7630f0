// Package series holds depth/temperature sample series and the transforms
// applied to them before boundary detection: synthesis, noise, min-max
// normalisation and median smoothing. Transforms never modify their input.
package series

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned when depths and temperatures differ in length.
var ErrLengthMismatch = errors.New("depths and temperatures differ in length")

// Series is a temperature profile sampled at increasing depths.
type Series struct {
	Depths []float64 `json:"depths"`
	Temps  []float64 `json:"temperatures"`
}

// New returns a Series that owns copies of depths and temps.
func New(depths, temps []float64) (Series, error) {
	if len(depths) != len(temps) {
		return Series{}, fmt.Errorf("%w: %d depths, %d temperatures", ErrLengthMismatch, len(depths), len(temps))
	}
	return Series{
		Depths: append([]float64(nil), depths...),
		Temps:  append([]float64(nil), temps...),
	}, nil
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Depths)
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	return Series{
		Depths: append([]float64(nil), s.Depths...),
		Temps:  append([]float64(nil), s.Temps...),
	}
}

// DepthRange returns the minimum and maximum depth.
func (s Series) DepthRange() (lo, hi float64) {
	return minMax(s.Depths)
}

// Linspace returns n evenly spaced values over [lo, hi]. n == 1 yields lo.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Normalize maps v onto [0, 1] with min-max scaling. A constant input maps
// to zeros.
func Normalize(v []float64) []float64 {
	lo, hi := minMax(v)
	return NormalizeWith(v, lo, hi)
}

// NormalizeWith scales v by an externally chosen range.
func NormalizeWith(v []float64, lo, hi float64) []float64 {
	out := make([]float64, len(v))
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, x := range v {
		out[i] = (x - lo) / span
	}
	return out
}

// Normalized returns the series with both axes min-max scaled.
func (s Series) Normalized() Series {
	return Series{
		Depths: Normalize(s.Depths),
		Temps:  Normalize(s.Temps),
	}
}

func minMax(v []float64) (lo, hi float64) {
	if len(v) == 0 {
		return 0, 0
	}
	return floats.Min(v), floats.Max(v)
}
