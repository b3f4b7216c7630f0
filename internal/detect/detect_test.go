package detect

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

func scenarioA(t *testing.T, n int, sigma float64) series.Series {
	t.Helper()
	b := thermal.Boundaries{Left: []float64{0, 150, 300}, Right: []float64{100, 250, 400}}
	syn := series.NewSynthesizer(thermal.DefaultPhysics(), sigma, 42)
	s, err := syn.Synthesize(b, []float64{2000, 1000, 0}, n)
	require.NoError(t, err)
	return s.Observed()
}

func TestGrowthNoiseFree(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		expected []bool
	}{
		{"empty", nil, []bool{}},
		{"single sample", []float64{1}, []bool{false}},
		{"rise then flat", []float64{0, 1, 2, 2, 2}, []bool{true, true, true, false, false}},
		{"flat then rise", []float64{1, 1, 1, 2, 3}, []bool{false, false, false, true, true}},
		{"below threshold", []float64{0, 1e-7, 2e-7}, []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GrowthNoiseFree(tt.input))
		})
	}
}

func TestGrowthWindowed(t *testing.T) {
	z := series.Linspace(0, 1, 11)
	line := make([]float64, len(z))
	flat := make([]float64, len(z))
	hinge := make([]float64, len(z))
	for i, v := range z {
		line[i] = v
		flat[i] = 0.3
		if v > 0.5 {
			hinge[i] = v - 0.5
		}
	}

	allTrue := make([]bool, len(z))
	for i := range allTrue {
		allTrue[i] = true
	}

	assert.Equal(t, allTrue, GrowthWindowed(z, line, 3, 0.5))
	assert.Equal(t, make([]bool, len(z)), GrowthWindowed(z, flat, 3, 0.5))
	assert.Equal(t, make([]bool, len(z)), GrowthWindowed(z, line, 12, 0.5), "window longer than series")
	assert.Equal(t, allTrue, GrowthWindowed(z, line, 0, 0.5), "window is raised to 2")

	mask := GrowthWindowed(z, hinge, 3, 0.5)
	assert.False(t, mask[0])
	assert.True(t, mask[10])
}

type countingPredictor struct {
	mu    sync.Mutex
	calls int
}

func (c *countingPredictor) Predict(Query) (int, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 3, 0.5, nil
}

func TestDetectGrowthUsesPredictorOnlyWithNoise(t *testing.T) {
	z := series.Linspace(0, 1, 5)
	temps := []float64{0, 0.25, 0.5, 0.75, 1}
	pred := &countingPredictor{}

	_, err := DetectGrowth(z, temps, 0, pred, Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, pred.calls)

	mask, err := DetectGrowth(z, temps, 0.01, pred, Query{Sigma: 0.01, N: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, pred.calls)
	assert.Equal(t, []bool{true, true, true, true, true}, mask)

	_, err = DetectGrowth(z, temps[:3], 0, pred, Query{})
	assert.Error(t, err)
	_, err = DetectGrowth(z, temps, 0.01, nil, Query{})
	assert.Error(t, err)
}

func TestExtractIntervals(t *testing.T) {
	tests := []struct {
		name     string
		mask     []bool
		expected []Interval
	}{
		{"empty", nil, nil},
		{"no growth", []bool{false, false, false}, nil},
		{"two intervals, last open", []bool{false, true, true, false, false, true, true}, []Interval{{0, 2}, {4, 6}}},
		{"all growth", []bool{true, true, true}, []Interval{{0, 2}}},
		{"lone first sample ignored", []bool{true, false, false}, nil},
		{"closed in the middle", []bool{false, false, true, true, false, false}, []Interval{{1, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractIntervals(tt.mask))
		})
	}
}

func TestExtendLast(t *testing.T) {
	in := []Interval{{0, 2}, {4, 6}}
	assert.Equal(t, []Interval{{0, 2}, {4, 9}}, ExtendLast(in, 9))
	assert.Equal(t, []Interval{{0, 2}, {4, 6}}, in, "input must not be modified")
	assert.Nil(t, ExtendLast(nil, 9))
}

func TestMergeAndRemove(t *testing.T) {
	z := series.Linspace(0, 1, 101) // step 0.01

	merged := MergeByGap(z, []Interval{{0, 10}, {11, 20}, {40, 50}, {52, 60}}, 0.015)
	assert.Equal(t, []Interval{{0, 20}, {40, 50}, {52, 60}}, merged)

	kept := RemoveShort(z, []Interval{{0, 20}, {30, 30}, {40, 50}}, 0.05)
	assert.Equal(t, []Interval{{0, 20}, {40, 50}}, kept)

	assert.Nil(t, MergeByGap(z, nil, 0.01))
}

func TestCleanIsIdempotent(t *testing.T) {
	z := series.Linspace(0, 1, 201)
	p := Postprocessor{MergeGap: 0.02, MinLength: 0.03}
	raw := []Interval{{0, 10}, {12, 30}, {50, 51}, {80, 120}, {123, 124}, {190, 200}}

	once := p.Clean(z, raw)
	twice := p.Clean(z, once)
	assert.Equal(t, once, twice)

	for i := 1; i < len(once); i++ {
		assert.Greater(t, once[i].Start, once[i-1].End)
	}
}

func TestRestore(t *testing.T) {
	assert.InDeltaSlice(t, []float64{100, 250, 400}, Restore([]float64{0, 0.5, 1}, 100, 400), 1e-12)
}

func TestFinderScenarioA(t *testing.T) {
	s := scenarioA(t, 401, 0)
	f := NewFinder(nil, nil, DefaultPostprocessor())

	det, err := f.Find(s, Query{Pe0: 2000, A: 5, Sigma: 0, N: s.Len()})
	require.NoError(t, err)

	require.Equal(t, 3, det.Boundaries.Len())
	assert.InDeltaSlice(t, []float64{0, 150, 300}, det.Boundaries.Left, 1e-9)
	assert.InDeltaSlice(t, []float64{100, 250, 400}, det.Boundaries.Right, 1e-9)
}

func TestFinderDegenerate(t *testing.T) {
	f := NewFinder(nil, nil, DefaultPostprocessor())

	single, err := series.New([]float64{10}, []float64{0.5})
	require.NoError(t, err)
	det, err := f.Find(single, Query{N: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, det.Boundaries.Len())

	z := series.Linspace(0, 100, 50)
	flat, err := series.New(z, make([]float64, len(z)))
	require.NoError(t, err)
	det, err = f.Find(flat, Query{N: len(z)})
	require.NoError(t, err)
	assert.LessOrEqual(t, det.Boundaries.Len(), 1)

	det, err = f.Find(series.Series{}, Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, det.Boundaries.Len())
}

func TestFinderWithNoise(t *testing.T) {
	s := scenarioA(t, 401, 0.0005)
	f := NewFinder(nil, FixedPredictor{WindowSize: 9, MinSlope: 0.3}, DefaultPostprocessor())

	det, err := f.Find(s, Query{Pe0: 2000, A: 5, Sigma: 0.0005, N: s.Len()})
	require.NoError(t, err)
	require.GreaterOrEqual(t, det.Boundaries.Len(), 1)

	assert.InDelta(t, 0, det.Boundaries.Left[0], 10)
	assert.Equal(t, 400.0, det.Boundaries.Right[det.Boundaries.Len()-1])
}

func TestTablePredictor(t *testing.T) {
	rows := []TrainingRow{
		{Pe0: 500, A: 1, Sigma: 0.001, N: 100, WindowSize: 5, MinSlope: 0.2},
		{Pe0: 5000, A: 10, Sigma: 0.01, N: 200, WindowSize: 21, MinSlope: 0.5},
		{Pe0: 2750, A: 5, Sigma: 0.005, N: 150, WindowSize: 11, MinSlope: 0.35},
	}
	p, err := NewTablePredictor(rows, 2)
	require.NoError(t, err)

	ws, ms, err := p.Predict(Query{Pe0: 5000, A: 10, Sigma: 0.01, N: 200})
	require.NoError(t, err)
	assert.Equal(t, 21, ws)
	assert.Equal(t, 0.5, ms)

	ws, ms, err = p.Predict(Query{Pe0: 2800, A: 5, Sigma: 0.005, N: 150})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ws, 5)
	assert.LessOrEqual(t, ws, 21)
	assert.InDelta(t, 0.35, ms, 0.15)

	_, err = NewTablePredictor(nil, 3)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestTablePredictorConcurrentReads(t *testing.T) {
	p, err := NewTablePredictor([]TrainingRow{
		{Pe0: 1000, A: 2, Sigma: 0.001, N: 50, WindowSize: 4, MinSlope: 0.1},
		{Pe0: 3000, A: 8, Sigma: 0.004, N: 200, WindowSize: 12, MinSlope: 0.3},
	}, 2)
	require.NoError(t, err)

	want, wantMs, _ := p.Predict(Query{Pe0: 2000, A: 5, Sigma: 0.002, N: 100})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, ms, err := p.Predict(Query{Pe0: 2000, A: 5, Sigma: 0.002, N: 100})
			assert.NoError(t, err)
			assert.Equal(t, want, ws)
			assert.Equal(t, wantMs, ms)
		}()
	}
	wg.Wait()
}

func TestLoadTablePredictor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training_data.txt")
	content := "Pe0\tA\tsigma\tN\twindow_size\tmin_slope\n" +
		"500\t1\t0.0001\t50\t3\t0.01\n" +
		"5000\t10\t0.01\t200\t21\t0.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadTablePredictor(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	ws, ms, err := p.Predict(Query{Pe0: 500, A: 1, Sigma: 0.0001, N: 50})
	require.NoError(t, err)
	assert.Equal(t, 3, ws)
	assert.Equal(t, 0.01, ms)
}
