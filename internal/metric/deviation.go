// Package metric scores recovered inflow profiles and detected boundaries
// against a known truth.
package metric

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// DefaultPoints is the size of the integration grid.
const DefaultPoints = 300

// Norm selects how the pointwise difference is accumulated.
type Norm int

const (
	L2 Norm = iota
	L1
)

// Scale selects the divisor that makes a deviation dimensionless.
type Scale int

const (
	// ScaleMaxStep divides by the largest absolute step of the truth.
	ScaleMaxStep Scale = iota

	// ScaleLength divides by the length of the shared depth domain.
	ScaleLength
)

// Candidate is one set of segments with its Pe list.
type Candidate struct {
	Boundaries thermal.Boundaries `json:"boundaries"`
	PeList     []float64          `json:"pe"`
}

// DeviationOptions tune Deviation. The zero value is an L2 score over
// DefaultPoints samples scaled by the largest true step.
type DeviationOptions struct {
	Points  int
	Norm    Norm
	Scale   Scale
	Percent bool
}

// StepProfile samples the leakage step function of a candidate at z. Across
// the sealed gap after segment i it holds Pe[i]-Pe[i+1]; everywhere else it
// is zero. It returns nil when pe is shorter than the segment list.
func StepProfile(z []float64, b thermal.Boundaries, pe []float64) []float64 {
	k := b.Len()
	if len(pe) < k || len(b.Right) != k {
		return nil
	}
	out := make([]float64, len(z))
	for i := 0; i+1 < k; i++ {
		lo, hi := b.Right[i], b.Left[i+1]
		step := pe[i] - pe[i+1]
		for j, v := range z {
			if v >= lo && v < hi {
				out[j] = step
			}
		}
	}
	return out
}

// Deviation is the normalised distance between the step profiles of truth
// and candidate, integrated with Simpson's rule over the depth range both
// share. It returns NaN when either input cannot be evaluated.
func Deviation(truth, candidate Candidate, opts DeviationOptions) float64 {
	n := opts.Points
	if n <= 0 {
		n = DefaultPoints
	}
	if n < 3 {
		n = 3
	}

	lo, hi, ok := domain(truth.Boundaries, candidate.Boundaries)
	if !ok {
		return math.NaN()
	}
	length := hi - lo

	z := make([]float64, n)
	floats.Span(z, lo, hi)

	want := StepProfile(z, truth.Boundaries, truth.PeList)
	got := StepProfile(z, candidate.Boundaries, candidate.PeList)
	if want == nil || got == nil {
		return math.NaN()
	}

	diff := make([]float64, n)
	for i := range diff {
		d := got[i] - want[i]
		if opts.Norm == L1 {
			diff[i] = math.Abs(d)
		} else {
			diff[i] = d * d
		}
	}

	score := integrate.Simpsons(z, diff) / length
	if opts.Norm != L1 {
		score = math.Sqrt(math.Max(score, 0))
	}

	var scale float64
	switch opts.Scale {
	case ScaleLength:
		scale = length
	default:
		for _, v := range want {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	if scale > 0 {
		score /= scale
	}

	if opts.Percent {
		score *= 100
	}
	return score
}

// domain returns the depth range covered by either segment list.
func domain(a, b thermal.Boundaries) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range []thermal.Boundaries{a, b} {
		if s.Len() == 0 || len(s.Right) != s.Len() {
			continue
		}
		l, h := s.Span()
		lo = math.Min(lo, l)
		hi = math.Max(hi, h)
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || !(hi > lo) {
		return 0, 0, false
	}
	return lo, hi, true
}
