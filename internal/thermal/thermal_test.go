package thermal

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioA() (Boundaries, []float64, Physics) {
	return Boundaries{
		Left:  []float64{0, 150, 300},
		Right: []float64{100, 250, 400},
	}, []float64{2000, 1000, 0}, DefaultPhysics()
}

func TestTsGLinBoundaryCondition(t *testing.T) {
	tests := []struct {
		name string
		pe   float64
		zl   float64
		tl   float64
	}{
		{"no flow", 0, 0, 0},
		{"moderate flow", 1000, 150, 0.22},
		{"strong flow", 5000, 300, 0.9},
		{"very strong flow deep", 20000, 5000, 1.3},
	}

	p := DefaultPhysics()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TsGLin(tt.zl, p, tt.pe, tt.zl, tt.tl)
			assert.InDelta(t, tt.tl, got, 1e-9)
		})
	}
}

func TestTsGLinStaysFinite(t *testing.T) {
	p := DefaultPhysics()
	for _, pe := range []float64{0, 1, 500, 2000, 5000, 50000} {
		for _, z := range []float64{0, 1, 50, 99.5, 400, 5000} {
			v := TsGLin(z, p, pe, 0, 0)
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "pe=%g z=%g gave %g", pe, z, v)
		}
	}
}

func TestTsGLinNoFlowMatchesAnalytic(t *testing.T) {
	p := DefaultPhysics()
	zl, tl := 300.0, 0.5
	for _, z := range []float64{300, 300.1, 301, 305, 350} {
		want := p.TG0 + p.Atg*z + (tl-p.TG0-p.Atg*zl)*math.Exp(-math.Sqrt(p.A)*(z-zl))
		assert.InDelta(t, want, TsGLin(z, p, 0, zl, tl), 1e-12, "z=%g", z)
	}
}

func TestTsGLinApproachesShiftedGeotherm(t *testing.T) {
	p := DefaultPhysics()
	pe := 2000.0
	z := 40000.0
	want := Geotherm(z, p) - p.Atg*pe/p.A
	assert.InDelta(t, want, TsGLin(z, p, pe, 0, 0), 1e-9)
}

func TestTsGLinIsIncreasingFromColdStart(t *testing.T) {
	p := DefaultPhysics()
	m := NewModel(p)
	z := []float64{0, 10, 20, 50, 100}
	got := m.Evaluate(z, 2000, 0, 0)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestBoundaryTemperaturesScenarioA(t *testing.T) {
	b, pe, p := scenarioA()

	temps, err := BoundaryTemperatures(b, pe, p, 0)
	require.NoError(t, err)
	require.Len(t, temps, 4)

	assert.Equal(t, 0.0, temps[0])
	// 0.97 - 0.96·exp(-0.25)
	assert.InDelta(t, 0.2223, temps[1], 1e-3)
	for i := 1; i < len(temps); i++ {
		assert.Greater(t, temps[i], temps[i-1])
	}
}

func TestContinuityAcrossSegments(t *testing.T) {
	b, pe, p := scenarioA()
	c, err := NewChain(b, pe, p)
	require.NoError(t, err)

	for i := range pe {
		atRight := TsGLin(b.Right[i], p, pe[i], b.Left[i], c.T[i])
		assert.InEpsilon(t, c.T[i+1], atRight, 1e-6, "segment %d right boundary", i)

		if i+1 < len(pe) {
			atNextLeft := c.At(b.Left[i+1])
			assert.InEpsilon(t, c.T[i+1], atNextLeft, 1e-6, "segment %d left boundary", i+1)
		}
	}
}

func TestChainRegimes(t *testing.T) {
	b, pe, p := scenarioA()
	c, err := NewChain(b, pe, p)
	require.NoError(t, err)

	tests := []struct {
		name string
		z    float64
		want float64
	}{
		{"first gap start", 100, c.T[1]},
		{"first gap middle", 125, c.T[1]},
		{"just before second segment", 149.999, c.T[1]},
		{"second gap", 275, c.T[2]},
		{"last segment right boundary", 400, TsGLin(400, p, 0, 300, c.T[2])},
		{"below last segment", 450, c.T[3]},
		{"inside first segment", 50, TsGLin(50, p, 2000, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.At(tt.z))
		})
	}
}

func TestChainAboveFirstSegment(t *testing.T) {
	p := DefaultPhysics()
	c, err := NewChain(Boundaries{Left: []float64{50}, Right: []float64{100}}, []float64{500}, p)
	require.NoError(t, err)

	assert.Equal(t, 0.0, c.At(10))
	assert.Equal(t, c.T[1], c.At(120))
}

func TestProfileIsMonotone(t *testing.T) {
	b, pe, p := scenarioA()
	z := make([]float64, 401)
	for i := range z {
		z[i] = float64(i)
	}

	temps, err := Profile(z, b, pe, p)
	require.NoError(t, err)
	require.Len(t, temps, len(z))

	for i := 1; i < len(temps); i++ {
		assert.GreaterOrEqual(t, temps[i], temps[i-1]-1e-12, "z=%g", z[i])
	}
	// sealed gaps are exactly flat
	assert.Equal(t, temps[101], temps[149])
	assert.Equal(t, temps[251], temps[299])
}

func TestEmptyChain(t *testing.T) {
	c, err := NewChain(Boundaries{}, nil, DefaultPhysics())
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.At(10))
}

func TestValidate(t *testing.T) {
	b, pe, p := scenarioA()

	tests := []struct {
		name  string
		b     Boundaries
		pe    []float64
		p     Physics
		isErr error
	}{
		{"valid", b, pe, p, nil},
		{"zero A", b, pe, Physics{ZInf: 1e5, TG0: 1, Atg: 1e-4, A: 0}, ErrInvalidPhysics},
		{"negative gradient", b, pe, Physics{ZInf: 1e5, TG0: 1, Atg: -1, A: 5}, ErrInvalidPhysics},
		{"zInf above bottom", b, pe, Physics{ZInf: 300, TG0: 1, Atg: 1e-4, A: 5}, ErrInvalidPhysics},
		{"mismatched boundaries", Boundaries{Left: []float64{0, 150}, Right: []float64{100}}, pe[:1], p, ErrBoundaryMismatch},
		{"negative depth", Boundaries{Left: []float64{-5}, Right: []float64{100}}, pe[:1], p, ErrNegativeBoundary},
		{"reversed segment", Boundaries{Left: []float64{100}, Right: []float64{50}}, pe[:1], p, ErrUnorderedBoundaries},
		{"overlapping segments", Boundaries{Left: []float64{0, 90}, Right: []float64{100, 200}}, pe[:2], p, ErrUnorderedBoundaries},
		{"pe count", b, pe[:2], p, ErrPeCountMismatch},
		{"negative pe", b, []float64{2000, -1, 0}, p, ErrNegativePe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.b, tt.pe, tt.p)
			if tt.isErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.isErr), "got %v", err)
		})
	}
}

func TestDebit(t *testing.T) {
	g := DefaultGeometry()
	assert.InDelta(t, 3.8776, Debit(1000, g), 1e-3)
	assert.Equal(t, 0.0, Debit(0, g))
	assert.Equal(t, []float64{Debit(2000, g), Debit(0, g)}, Debits([]float64{2000, 0}, g))
}

func TestRoundMantissa(t *testing.T) {
	assert.Equal(t, "1.23457e+04", RoundMantissa(12345.678))
	assert.Equal(t, "0.00000e+00", RoundMantissa(0))
}
