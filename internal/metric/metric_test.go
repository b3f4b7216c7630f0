package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

var truthA = Candidate{
	Boundaries: thermal.Boundaries{Left: []float64{0, 150, 300}, Right: []float64{100, 250, 400}},
	PeList:     []float64{2000, 1000, 0},
}

func TestStepProfile(t *testing.T) {
	z := []float64{0, 50, 100, 120, 150, 200, 250, 299, 300, 400}
	got := StepProfile(z, truthA.Boundaries, truthA.PeList)
	assert.Equal(t, []float64{0, 0, 1000, 1000, 0, 0, 1000, 1000, 0, 0}, got)

	assert.Nil(t, StepProfile(z, truthA.Boundaries, []float64{1}))
	assert.Equal(t, make([]float64, len(z)), StepProfile(z, thermal.Boundaries{}, nil))
}

func TestDeviationIdenticalIsZero(t *testing.T) {
	for _, opts := range []DeviationOptions{
		{},
		{Norm: L1},
		{Scale: ScaleLength, Percent: true},
		{Points: 51, Norm: L1, Percent: true},
	} {
		assert.InDelta(t, 0, Deviation(truthA, truthA, opts), 1e-12)
	}
}

func TestDeviationGrowsWithError(t *testing.T) {
	near := Candidate{Boundaries: truthA.Boundaries, PeList: []float64{2000, 1050, 0}}
	far := Candidate{Boundaries: truthA.Boundaries, PeList: []float64{2000, 1500, 0}}

	dNear := Deviation(truthA, near, DeviationOptions{Percent: true})
	dFar := Deviation(truthA, far, DeviationOptions{Percent: true})
	assert.Positive(t, dNear)
	assert.Greater(t, dFar, dNear)
	assert.False(t, math.IsNaN(dFar))

	shifted := Candidate{
		Boundaries: thermal.Boundaries{Left: []float64{0, 160, 300}, Right: []float64{110, 250, 400}},
		PeList:     truthA.PeList,
	}
	assert.Positive(t, Deviation(truthA, shifted, DeviationOptions{Norm: L1}))
}

func TestDeviationL1Value(t *testing.T) {
	// steps differ by 500 over both 50-long gaps of a 400-long domain
	cand := Candidate{Boundaries: truthA.Boundaries, PeList: []float64{2000, 1500, 0}}
	got := Deviation(truthA, cand, DeviationOptions{Points: 4001, Norm: L1})
	assert.InDelta(t, 500.0*100/400/1000, got, 0.01)
}

func TestDeviationFailsGracefully(t *testing.T) {
	assert.True(t, math.IsNaN(Deviation(Candidate{}, Candidate{}, DeviationOptions{})))

	bad := Candidate{Boundaries: truthA.Boundaries, PeList: []float64{1}}
	assert.True(t, math.IsNaN(Deviation(truthA, bad, DeviationOptions{})))

	mismatched := Candidate{Boundaries: thermal.Boundaries{Left: []float64{0, 1}, Right: []float64{2}}, PeList: []float64{1, 0}}
	assert.True(t, math.IsNaN(Deviation(mismatched, mismatched, DeviationOptions{})))
}

func TestMatchCount(t *testing.T) {
	found := thermal.Boundaries{Left: []float64{0, 40, 150, 300}, Right: []float64{100, 45, 250, 400}}

	trimmed := MatchCount(found, 3)
	assert.Equal(t, []float64{0, 150, 300}, trimmed.Left)
	assert.Equal(t, []float64{100, 250, 400}, trimmed.Right)

	padded := MatchCount(thermal.Boundaries{Left: []float64{150}, Right: []float64{250}}, 3)
	assert.Equal(t, []float64{0, 0, 150}, padded.Left)
	assert.Equal(t, []float64{0, 0, 250}, padded.Right)
}

func TestBoundaryErrors(t *testing.T) {
	exact := BoundaryErrors(truthA.Boundaries, truthA.Boundaries)
	assert.Zero(t, exact.Total)
	assert.Zero(t, exact.RMSE)

	found := thermal.Boundaries{Left: []float64{2, 150, 296}, Right: []float64{100, 254, 400}}
	s := BoundaryErrors(truthA.Boundaries, found)
	assert.Equal(t, []float64{2, 0, 4}, s.LeftErrors)
	assert.Equal(t, []float64{0, 4, 0}, s.RightErrors)
	assert.InDelta(t, 10, s.Total, 1e-12)
	assert.InDelta(t, 10.0/6, s.MAE, 1e-12)
	assert.InDelta(t, 36.0/6, s.MSE, 1e-12)
	assert.InDelta(t, math.Sqrt(6), s.RMSE, 1e-12)
	assert.InDelta(t, 10.0/300*100, s.RelativeMAE, 1e-12)

	assert.Equal(t, BoundaryScore{}, BoundaryErrors(thermal.Boundaries{}, found))
}

func TestProfileDeviation(t *testing.T) {
	z := series.Linspace(0, 400, 101)
	temps, err := thermal.Profile(z, truthA.Boundaries, truthA.PeList, thermal.DefaultPhysics())
	require.NoError(t, err)

	assert.InDelta(t, 0, ProfileDeviation(z, temps, z, temps, 0), 1e-12)

	shifted := make([]float64, len(temps))
	for i, v := range temps {
		shifted[i] = v + 0.01
	}
	// a constant offset c gives c·sqrt(L)/L
	assert.InDelta(t, 0.01*math.Sqrt(400)/400*100, ProfileDeviation(z, temps, z, shifted, 0), 1e-6)

	assert.True(t, math.IsNaN(ProfileDeviation(z, temps, []float64{500, 600}, []float64{0, 0}, 0)))
	assert.True(t, math.IsNaN(ProfileDeviation([]float64{1}, []float64{1}, z, temps, 0)))
}
