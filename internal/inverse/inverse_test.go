package inverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

var (
	threeSegments = thermal.Boundaries{Left: []float64{0, 150, 300}, Right: []float64{100, 250, 400}}
	fourSegments  = thermal.Boundaries{Left: []float64{0, 120, 250, 370}, Right: []float64{80, 200, 330, 450}}
)

func problem(t *testing.T, b thermal.Boundaries, pe []float64, n int) Problem {
	t.Helper()
	syn := series.NewSynthesizer(thermal.DefaultPhysics(), 0, 1)
	s, err := syn.Synthesize(b, pe, n)
	require.NoError(t, err)
	return Problem{
		Depths:     s.Depths,
		Observed:   s.True,
		Boundaries: b,
		Physics:    thermal.DefaultPhysics(),
		PeTop:      pe[0],
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name     string
		deltas   []float64
		peTop    float64
		k        int
		expected []float64
	}{
		{"no segments", nil, 100, 0, nil},
		{"one segment", nil, 100, 1, []float64{100}},
		{"two segments", nil, 100, 2, []float64{100, 0}},
		{"running sum", []float64{30, 20}, 100, 4, []float64{100, 70, 50, 0}},
		{"floored at zero", []float64{80, 50}, 100, 4, []float64{100, 20, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Reconstruct(tt.deltas, tt.peTop, tt.k))
		})
	}
}

func TestReconstructIsNonIncreasing(t *testing.T) {
	for _, u := range [][]float64{{-3, 0.2, 1.4}, {1.5, 1.5, 1.5}, {-1.5, -1.5, -1.5}, {0.3, -2.2, 7}} {
		obj := &objective{peTop: 2500, k: len(u) + 2}
		pe := obj.peList(u)

		require.Len(t, pe, len(u)+2)
		assert.Equal(t, 2500.0, pe[0])
		assert.Equal(t, 0.0, pe[len(pe)-1])
		for i := 1; i < len(pe); i++ {
			assert.LessOrEqual(t, pe[i], pe[i-1])
			assert.GreaterOrEqual(t, pe[i], 0.0)
		}
	}
}

func TestDeltasInvertsReconstruct(t *testing.T) {
	interior := []float64{1500, 900, 200}
	d := Deltas(interior, 2000)
	assert.Equal(t, []float64{500, 600, 700}, d)
	assert.Equal(t, []float64{2000, 1500, 900, 200, 0}, Reconstruct(d, 2000, 5))

	for _, v := range []float64{0, 250, 1000, 1999} {
		assert.InDelta(t, v, toDelta(fromDelta(v, 2000), 2000), 2000*0.002)
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodLeastSquares, got)

	got, err = ParseMethod("Powell")
	require.NoError(t, err)
	assert.Equal(t, MethodPowell, got)

	_, err = ParseMethod("simulated-annealing")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = NewOptimizer(nil, Method("nope"), DefaultSettings())
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestFitDegenerate(t *testing.T) {
	opt, err := NewOptimizer(nil, MethodLeastSquares, DefaultSettings())
	require.NoError(t, err)

	calls := 0
	obs := ObserverFunc(func([]float64, float64, int) { calls++ })

	tests := []struct {
		name     string
		b        thermal.Boundaries
		peTop    float64
		expected []float64
	}{
		{"no segments", thermal.Boundaries{}, 2000, []float64{0}},
		{"one segment", thermal.Boundaries{Left: []float64{0}, Right: []float64{100}}, 2000, []float64{2000, 0}},
		{"two segments", thermal.Boundaries{Left: []float64{0, 150}, Right: []float64{100, 250}}, 2000, []float64{2000, 0}},
		{"no inflow", threeSegments, 0, []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := series.Linspace(0, 400, 41)
			res, err := opt.Fit(Problem{
				Depths:     z,
				Observed:   make([]float64, len(z)),
				Boundaries: tt.b,
				Physics:    thermal.DefaultPhysics(),
				PeTop:      tt.peTop,
			}, obs)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.PeList)
			assert.True(t, res.Success)
			assert.Equal(t, "no free parameters", res.Message)
			assert.Zero(t, res.Iterations)
		})
	}
	assert.Zero(t, calls, "the solver must not run without free parameters")
}

func TestFitRejectsMalformedProblems(t *testing.T) {
	opt, err := NewOptimizer(nil, MethodLeastSquares, DefaultSettings())
	require.NoError(t, err)
	p := problem(t, threeSegments, []float64{2000, 1000, 0}, 101)

	bad := p
	bad.Initial = []float64{1000, 500}
	_, err = opt.Fit(bad)
	assert.ErrorIs(t, err, ErrGuessCount)

	bad = p
	bad.PeTop = -1
	_, err = opt.Fit(bad)
	assert.ErrorIs(t, err, thermal.ErrNegativePe)

	bad = p
	bad.Observed = bad.Observed[:10]
	_, err = opt.Fit(bad)
	assert.Error(t, err)

	bad = p
	bad.Boundaries = thermal.Boundaries{Left: []float64{0, 50}, Right: []float64{100}}
	_, err = opt.Fit(bad)
	assert.ErrorIs(t, err, thermal.ErrBoundaryMismatch)
}

func TestLeastSquaresRecoversInteriorPe(t *testing.T) {
	p := problem(t, threeSegments, []float64{2000, 1000, 0}, 401)
	p.Initial = []float64{500}

	opt, err := NewOptimizer(nil, MethodLeastSquares, DefaultSettings())
	require.NoError(t, err)

	var h History
	res, err := opt.Fit(p, &h)
	require.NoError(t, err)

	assert.True(t, res.Success, res.Message)
	require.Len(t, res.PeList, 3)
	assert.Equal(t, 2000.0, res.PeList[0])
	assert.InDelta(t, 1000, res.PeList[1], 1)
	assert.Equal(t, 0.0, res.PeList[2])
	assert.Less(t, res.Loss, 1e-8)
	assert.Equal(t, MethodLeastSquares, res.Method)

	assert.Equal(t, res.Iterations, h.Len())
	losses := h.Losses()
	require.NotEmpty(t, losses)
	assert.LessOrEqual(t, losses[len(losses)-1], losses[0])
	for _, r := range h.Records {
		assert.Len(t, r.PeList, 3)
	}
}

func TestLeastSquaresTwoFreeParameters(t *testing.T) {
	truth := []float64{3000, 2000, 800, 0}
	p := problem(t, fourSegments, truth, 451)

	opt, err := NewOptimizer(nil, MethodLeastSquares, DefaultSettings())
	require.NoError(t, err)

	res, err := opt.Fit(p)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.InDeltaSlice(t, truth, res.PeList, 5)
}

func TestOtherMethodsRecoverInteriorPe(t *testing.T) {
	p := problem(t, threeSegments, []float64{2000, 1000, 0}, 201)
	p.Initial = []float64{600}

	for _, m := range []Method{MethodNelderMead, MethodPowell, MethodBFGS, MethodCMAES} {
		t.Run(string(m), func(t *testing.T) {
			opt, err := NewOptimizer(nil, m, DefaultSettings())
			require.NoError(t, err)

			var h History
			res, err := opt.Fit(p, &h)
			require.NoError(t, err)

			require.Len(t, res.PeList, 3)
			assert.InDelta(t, 1000, res.PeList[1], 20)
			assert.Positive(t, h.Len())
			assert.Positive(t, res.Evaluations)
		})
	}
}

func TestFitReportsNonConvergence(t *testing.T) {
	p := problem(t, threeSegments, []float64{2000, 1000, 0}, 101)
	p.Initial = []float64{1950}

	for _, m := range []Method{MethodLeastSquares, MethodNelderMead, MethodPowell, MethodBFGS, MethodCMAES} {
		t.Run(string(m), func(t *testing.T) {
			opt, err := NewOptimizer(nil, m, Settings{MaxIterations: 1})
			require.NoError(t, err)

			res, err := opt.Fit(p)
			require.NoError(t, err)
			assert.False(t, res.Success, res.Message)
			assert.Equal(t, "maximum number of iterations reached", res.Message)
			assert.LessOrEqual(t, res.Iterations, 1)
			require.Len(t, res.PeList, 3)
		})
	}
}

func TestGonumStatusConvergence(t *testing.T) {
	for _, s := range []optimize.Status{optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.MethodConverge, optimize.FunctionThreshold} {
		assert.True(t, converged(s), s.String())
	}
	for _, s := range []optimize.Status{optimize.NotTerminated, optimize.IterationLimit, optimize.FunctionEvaluationLimit,
		optimize.RuntimeLimit, optimize.Failure} {
		assert.False(t, converged(s), s.String())
	}
	assert.Equal(t, "maximum number of iterations reached", statusMessage(optimize.IterationLimit))
}

func TestObserverReceivesCopies(t *testing.T) {
	p := problem(t, threeSegments, []float64{2000, 1000, 0}, 101)
	p.Initial = []float64{700}

	opt, err := NewOptimizer(nil, MethodLeastSquares, DefaultSettings())
	require.NoError(t, err)

	var first, second History
	mutating := ObserverFunc(func(snapshot []float64, _ float64, _ int) {
		for i := range snapshot {
			snapshot[i] = -1
		}
	})
	_, err = opt.Fit(p, &first, mutating, &second)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i := range second.Records {
		assert.Equal(t, 2000.0, second.Records[i].PeList[0])
		assert.Equal(t, first.Records[i].PeList, second.Records[i].PeList)
	}
}
