package inverse

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	lineSamples  = 16
	lineSpan     = math.Pi / 2
	goldenRatio  = 0.6180339887498949
	goldenMaxIts = 100
)

// powell is Powell's conjugate direction method. Each direction is searched
// with a coarse scan followed by golden-section refinement, so no gradient
// is needed.
type powell struct{}

func (powell) solve(obj *objective, u0 []float64, s Settings, obs Observer) solution {
	n := len(u0)
	u := append([]float64(nil), u0...)
	fu := obj.loss(u)
	if math.IsInf(fu, 1) {
		return solution{u: u, loss: fu, message: "residuals are not finite at the initial guess"}
	}

	dirs := make([][]float64, n)
	for i := range dirs {
		dirs[i] = make([]float64, n)
		dirs[i][i] = 1
	}

	start := make([]float64, n)
	extrap := make([]float64, n)
	moved := make([]float64, n)

	for iter := 1; iter <= s.MaxIterations; iter++ {
		copy(start, u)
		fStart := fu

		var biggest float64
		bigIdx := 0
		for i, d := range dirs {
			prev := fu
			u, fu = lineMinimize(obj, u, d, fu)
			if prev-fu > biggest {
				biggest = prev - fu
				bigIdx = i
			}
		}
		obs.Observe(obj.peList(u), fu, iter)

		if fu == 0 || 2*(fStart-fu) <= s.FTol*(math.Abs(fStart)+math.Abs(fu)) {
			return solution{u: u, loss: fu, iterations: iter, success: true, message: "relative reduction of the loss is below ftol"}
		}

		floats.SubTo(moved, u, start)
		if floats.Norm(moved, 2) <= s.XTol*(s.XTol+floats.Norm(u, 2)) {
			return solution{u: u, loss: fu, iterations: iter, success: true, message: "relative step is below xtol"}
		}

		floats.AddScaledTo(extrap, u, 1, moved)
		fe := obj.loss(extrap)
		if fe >= fStart {
			continue
		}
		t := 2 * (fStart - 2*fu + fe) * math.Pow(fStart-fu-biggest, 2)
		if t >= biggest*math.Pow(fStart-fe, 2) {
			continue
		}
		u, fu = lineMinimize(obj, u, moved, fu)
		dirs[bigIdx] = dirs[n-1]
		dirs[n-1] = append([]float64(nil), moved...)
	}

	return solution{u: u, loss: fu, iterations: s.MaxIterations, message: "maximum number of iterations reached"}
}

// lineMinimize returns the best point along u + t·dir for t in
// [-lineSpan, lineSpan], or u itself when nothing improves on f0.
func lineMinimize(obj *objective, u, dir []float64, f0 float64) ([]float64, float64) {
	x := make([]float64, len(u))
	eval := func(t float64) float64 {
		floats.AddScaledTo(x, u, t, dir)
		return obj.loss(x)
	}

	bestT, bestF := 0.0, f0
	h := 2 * lineSpan / lineSamples
	for i := 0; i <= lineSamples; i++ {
		t := -lineSpan + float64(i)*h
		if f := eval(t); f < bestF {
			bestT, bestF = t, f
		}
	}

	a, b := bestT-h, bestT+h
	c := b - goldenRatio*(b-a)
	d := a + goldenRatio*(b-a)
	fc, fd := eval(c), eval(d)
	for i := 0; i < goldenMaxIts && b-a > 1e-10*(1+math.Abs(bestT)); i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - goldenRatio*(b-a)
			fc = eval(c)
		} else {
			a, c, fc = c, d, fd
			d = a + goldenRatio*(b-a)
			fd = eval(d)
		}
	}
	mid := (a + b) / 2
	if f := eval(mid); f < bestF {
		bestT, bestF = mid, f
	}

	if bestF >= f0 {
		return u, f0
	}
	out := make([]float64, len(u))
	floats.AddScaledTo(out, u, bestT, dir)
	return out, bestF
}
