package inverse

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	lmInitialDamping = 1e-3
	lmMaxDamping     = 1e16
	lmMinDiagonal    = 1e-30
)

// levenbergMarquardt minimises the residual vector with Marquardt-scaled
// damping on the normal equations. The Jacobian is taken by central
// differences.
type levenbergMarquardt struct{}

func (levenbergMarquardt) solve(obj *objective, u0 []float64, s Settings, obs Observer) solution {
	n := len(u0)
	m := len(obj.observed)

	u := append([]float64(nil), u0...)
	r := make([]float64, m)
	obj.residuals(r, u)
	cost := sumSquares(r)
	if math.IsInf(cost, 1) {
		return solution{u: u, loss: cost, message: "residuals are not finite at the initial guess"}
	}

	var (
		jac    = mat.NewDense(m, n, nil)
		jtj    = mat.NewSymDense(n, nil)
		damped = mat.NewSymDense(n, nil)
		grad   = mat.NewVecDense(n, nil)
		step   = mat.NewVecDense(n, nil)
		trial  = make([]float64, n)
		rTrial = make([]float64, m)
		chol   mat.Cholesky
	)
	jacSettings := &fd.JacobianSettings{Formula: fd.Central}
	fn := func(y, x []float64) { obj.residuals(y, x) }

	linearize := func() {
		fd.Jacobian(jac, fn, u, jacSettings)
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))
	}
	linearize()

	mu := lmInitialDamping
	for iter := 1; iter <= s.MaxIterations; iter++ {
		if cost == 0 {
			obs.Observe(obj.peList(u), cost, iter)
			return solution{u: u, loss: cost, iterations: iter, success: true, message: "exact fit"}
		}
		if mat.Norm(grad, math.Inf(1)) == 0 {
			obs.Observe(obj.peList(u), cost, iter)
			return solution{u: u, loss: cost, iterations: iter, success: true, message: "gradient vanished"}
		}

		damped.CopySym(jtj)
		for i := 0; i < n; i++ {
			d := math.Max(jtj.At(i, i), lmMinDiagonal)
			damped.SetSym(i, i, d*(1+mu))
		}

		solved := chol.Factorize(damped)
		if solved {
			solved = chol.SolveVecTo(step, grad) == nil
		}
		if !solved {
			mu *= 10
			obs.Observe(obj.peList(u), cost, iter)
			if mu > lmMaxDamping {
				return solution{u: u, loss: cost, iterations: iter, message: "normal equations are singular"}
			}
			continue
		}

		// damped·step = Jᵀr, so the descent step is -step
		for i := range trial {
			trial[i] = u[i] - step.AtVec(i)
		}
		stepNorm := floats.Norm(step.RawVector().Data, 2)
		small := stepNorm <= s.XTol*(s.XTol+floats.Norm(u, 2))

		obj.residuals(rTrial, trial)
		trialCost := sumSquares(rTrial)

		if trialCost < cost {
			reduction := (cost - trialCost) / cost
			copy(u, trial)
			copy(r, rTrial)
			cost = trialCost
			mu = math.Max(mu/3, 1e-12)
			obs.Observe(obj.peList(u), cost, iter)

			switch {
			case reduction <= s.FTol:
				return solution{u: u, loss: cost, iterations: iter, success: true, message: "relative reduction of the loss is below ftol"}
			case small:
				return solution{u: u, loss: cost, iterations: iter, success: true, message: "relative step is below xtol"}
			}
			linearize()
			continue
		}

		obs.Observe(obj.peList(u), cost, iter)
		if small {
			return solution{u: u, loss: cost, iterations: iter, success: true, message: "relative step is below xtol"}
		}
		mu *= 4
		if mu > lmMaxDamping {
			return solution{u: u, loss: cost, iterations: iter, message: "damping exceeded its limit without progress"}
		}
	}

	return solution{u: u, loss: cost, iterations: s.MaxIterations, message: "maximum number of iterations reached"}
}
