package thermal

import "math"

// TsGLin returns the temperature at depth z inside an open segment that starts
// at zl with boundary temperature tl and flow parameter pe.
//
// The closed form is a sum of six exponentials scaled by
//
//	exp(½(sD − Pe(zInf+zl))) / ((exp(sD) − 1)·A),  s = √(4A+Pe²), D = zInf − zl.
//
// sD reaches 10⁸ for realistic constants, so every term is folded with the
// prefactor in the exponent before exponentiating. All folded exponents are
// non-positive for zl ≤ z ≤ zInf and the largest one is exactly zero, which
// keeps the sum in float64 range without cancellation between huge terms.
func TsGLin(z float64, p Physics, pe, zl, tl float64) float64 {
	a := p.A
	s := math.Sqrt(4*a + pe*pe)
	sd := s * (p.ZInf - zl)

	terms := [6]struct{ coef, exp float64 }{
		{p.Atg * pe, 0.5 * (s + pe) * (z - p.ZInf)},
		{-p.Atg * pe, 0.5 * (s*(2*zl-z-p.ZInf) + pe*(z-p.ZInf))},
		{p.TG0*a - p.Atg*pe + p.Atg*a*z, 0},
		{-p.TG0*a + p.Atg*(pe-a*z), -sd},
		{p.TG0*a - tl*a - p.Atg*pe + p.Atg*a*zl, 0.5*(s+pe)*(z-zl) - sd},
		{-p.TG0*a + tl*a + p.Atg*(pe-a*zl), 0.5 * (pe - s) * (z - zl)},
	}

	var sum float64
	for _, t := range terms {
		if t.coef == 0 {
			continue
		}
		sum += t.coef * math.Exp(t.exp)
	}

	// 1/(exp(sD) − 1) after pulling exp(sD) into the terms above.
	return sum / (a * -math.Expm1(-sd))
}

// Geotherm returns the undisturbed formation temperature at depth z.
func Geotherm(z float64, p Physics) float64 {
	return p.TG0 + p.Atg*z
}

// Model evaluates TsGLin for a fixed set of physical constants.
type Model struct {
	Physics Physics
}

// NewModel returns a Model for p.
func NewModel(p Physics) *Model {
	return &Model{Physics: p}
}

// At returns the temperature at one depth.
func (m *Model) At(z, pe, zl, tl float64) float64 {
	return TsGLin(z, m.Physics, pe, zl, tl)
}

// Evaluate maps the scalar solution over depths.
func (m *Model) Evaluate(z []float64, pe, zl, tl float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = TsGLin(v, m.Physics, pe, zl, tl)
	}
	return out
}
