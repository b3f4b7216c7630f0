package inverse

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// convergeWindow is how many major iterations the loss may stall before a
// gonum method is considered converged.
const convergeWindow = 20

type nelderMead struct{}

func (nelderMead) solve(obj *objective, u0 []float64, s Settings, obs Observer) solution {
	return minimize(obj, u0, s, obs, &optimize.NelderMead{}, false)
}

type bfgs struct{}

func (bfgs) solve(obj *objective, u0 []float64, s Settings, obs Observer) solution {
	return minimize(obj, u0, s, obs, &optimize.BFGS{}, true)
}

// cmaes is the black-box search used when the loss surface is too rough for
// local methods. It is seeded so that runs are reproducible.
type cmaes struct{}

func (cmaes) solve(obj *objective, u0 []float64, s Settings, obs Observer) solution {
	method := &optimize.CmaEsChol{
		InitStepSize: 0.5,
		Src:          rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15),
	}
	return minimize(obj, u0, s, obs, method, false)
}

// recorder forwards every major iteration of a gonum run to an Observer.
type recorder struct {
	obj   *objective
	obs   Observer
	iters int
}

func (r *recorder) Init() error {
	return nil
}

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	r.iters++
	r.obs.Observe(r.obj.peList(loc.X), loc.F, r.iters)
	return nil
}

func minimize(obj *objective, u0 []float64, s Settings, obs Observer, method optimize.Method, withGrad bool) solution {
	prob := optimize.Problem{Func: obj.loss}
	if withGrad {
		gs := &fd.Settings{Formula: fd.Central}
		prob.Grad = func(grad, x []float64) {
			fd.Gradient(grad, obj.loss, x, gs)
		}
	}

	rec := &recorder{obj: obj, obs: obs}
	settings := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-15,
			Relative:   s.FTol,
			Iterations: convergeWindow,
		},
		Recorder: rec,
	}

	res, err := optimize.Minimize(prob, append([]float64(nil), u0...), settings, method)
	if res == nil {
		u := append([]float64(nil), u0...)
		msg := "optimizer returned no result"
		if err != nil {
			msg = err.Error()
		}
		return solution{u: u, loss: obj.loss(u), iterations: rec.iters, message: msg}
	}

	sol := solution{
		u:          res.X,
		loss:       res.F,
		iterations: res.MajorIterations,
		success:    err == nil && converged(res.Status),
		message:    statusMessage(res.Status),
	}
	if err != nil {
		sol.message = err.Error()
	}
	return sol
}

// converged reports whether a gonum status is a convergence. Limits and
// failures end the run without one.
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.MethodConverge, optimize.FunctionThreshold:
		return true
	}
	return false
}

func statusMessage(status optimize.Status) string {
	switch status {
	case optimize.IterationLimit:
		return "maximum number of iterations reached"
	case optimize.FunctionEvaluationLimit:
		return "maximum number of loss evaluations reached"
	case optimize.RuntimeLimit:
		return "runtime limit reached"
	}
	return status.String()
}
