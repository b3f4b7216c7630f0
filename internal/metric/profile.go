package metric

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// ProfileDeviation is the L2 distance between two temperature curves over
// the depth range they share, as a percentage of that range. Both curves are
// resampled on n points with a natural cubic spline. NaN is returned when the
// curves do not overlap or cannot be interpolated.
func ProfileDeviation(zTrue, tTrue, zFound, tFound []float64, n int) float64 {
	if n <= 0 {
		n = DefaultPoints
	}
	if n < 3 {
		n = 3
	}

	want, err := fitCurve(zTrue, tTrue)
	if err != nil {
		return math.NaN()
	}
	got, err := fitCurve(zFound, tFound)
	if err != nil {
		return math.NaN()
	}

	lo := math.Max(zTrue[0], zFound[0])
	hi := math.Min(zTrue[len(zTrue)-1], zFound[len(zFound)-1])
	if !(hi > lo) {
		return math.NaN()
	}

	z := make([]float64, n)
	floats.Span(z, lo, hi)
	sq := make([]float64, n)
	for i, v := range z {
		d := got.Predict(v) - want.Predict(v)
		sq[i] = d * d
	}

	return math.Sqrt(integrate.Simpsons(z, sq)) / (hi - lo) * 100
}

// ErrCurve is returned for curves that cannot be interpolated.
var ErrCurve = errors.New("metric: curve needs at least two strictly increasing samples")

func fitCurve(z, t []float64) (interp.Predictor, error) {
	if len(z) != len(t) || len(z) < 2 {
		return nil, ErrCurve
	}
	for i := 1; i < len(z); i++ {
		if !(z[i] > z[i-1]) {
			return nil, ErrCurve
		}
	}

	if len(z) < 3 {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(z, t); err != nil {
			return nil, err
		}
		return &pl, nil
	}
	var nc interp.NaturalCubic
	if err := nc.Fit(z, t); err != nil {
		return nil, err
	}
	return &nc, nil
}
