// Package inverse recovers the Pe of every open segment from an observed
// temperature profile once the segment boundaries are known.
//
// The top inflow is known and the bottom segment carries no flow. Instead of
// fitting interior Pe values directly, the solvers fit the drops between
// consecutive segments, each bounded to [0, Pe_top]; the last drop is
// whatever remains of Pe_top. Reconstructed profiles are therefore
// non-increasing with depth by construction.
package inverse

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// Method identifies the solver strategy
type Method string

const (
	// MethodLeastSquares uses Levenberg-Marquardt on the residual vector
	MethodLeastSquares Method = "leastsq"

	// MethodNelderMead uses the derivative-free simplex method
	MethodNelderMead Method = "nelder"

	// MethodPowell uses Powell's conjugate direction method
	MethodPowell Method = "powell"

	// MethodBFGS uses quasi-Newton BFGS with a finite-difference gradient
	MethodBFGS Method = "bfgs"

	// MethodCMAES uses the CMA-ES black-box search
	MethodCMAES Method = "cmaes"
)

// Methods lists every supported strategy.
func Methods() []Method {
	return []Method{MethodLeastSquares, MethodNelderMead, MethodPowell, MethodBFGS, MethodCMAES}
}

// ErrUnknownMethod is returned for an unsupported method name.
var ErrUnknownMethod = errors.New("unknown optimization method")

// ErrGuessCount is returned when the interior guesses do not match the
// number of interior segments.
var ErrGuessCount = errors.New("interior Pe guess count does not match segment count")

// ParseMethod resolves a method name. An empty name selects least squares.
func ParseMethod(name string) (Method, error) {
	if name == "" {
		return MethodLeastSquares, nil
	}
	m := Method(strings.ToLower(name))
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Problem is one inversion: an observed profile, the open segments found in
// it and the known top inflow.
type Problem struct {
	Depths     []float64
	Observed   []float64
	Boundaries thermal.Boundaries
	Physics    thermal.Physics
	PeTop      float64

	// Initial optionally holds guesses for the interior segments 1..K-2.
	// Without it the top inflow is split evenly between the segments.
	Initial []float64
}

// Settings bound the work a solver may do.
type Settings struct {
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`
	FTol          float64 `json:"ftol" yaml:"ftol"` // relative decrease of the loss treated as converged
	XTol          float64 `json:"xtol" yaml:"xtol"` // relative step treated as converged
	Seed          uint64  `json:"seed" yaml:"seed"` // randomised methods only
}

// DefaultSettings returns the solver limits used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 200,
		FTol:          1e-12,
		XTol:          1e-10,
		Seed:          1,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.FTol <= 0 {
		s.FTol = d.FTol
	}
	if s.XTol <= 0 {
		s.XTol = d.XTol
	}
	return s
}

// Result is the outcome of a fit. A run that did not converge still carries
// its best parameters and Success is false.
type Result struct {
	Method      Method    `json:"method"`
	PeList      []float64 `json:"pe"`
	Deltas      []float64 `json:"deltas"`
	Loss        float64   `json:"loss"`
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
}

type solution struct {
	u          []float64
	loss       float64
	iterations int
	success    bool
	message    string
}

type solver interface {
	solve(obj *objective, u0 []float64, s Settings, obs Observer) solution
}

func newSolver(m Method) (solver, error) {
	switch m {
	case MethodLeastSquares:
		return levenbergMarquardt{}, nil
	case MethodNelderMead:
		return nelderMead{}, nil
	case MethodPowell:
		return powell{}, nil
	case MethodBFGS:
		return bfgs{}, nil
	case MethodCMAES:
		return cmaes{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
}

// Optimizer fits interior Pe values with a chosen strategy.
type Optimizer struct {
	logger   *zap.SugaredLogger
	method   Method
	settings Settings
	solver   solver
}

// NewOptimizer creates an Optimizer for method.
func NewOptimizer(logger *zap.SugaredLogger, method Method, settings Settings) (*Optimizer, error) {
	if method == "" {
		method = MethodLeastSquares
	}
	s, err := newSolver(method)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Optimizer{
		logger:   logger,
		method:   method,
		settings: settings.withDefaults(),
		solver:   s,
	}, nil
}

// Method returns the strategy in use.
func (o *Optimizer) Method() Method {
	return o.method
}

// Fit recovers the Pe list for p. Observers, if any, are called once per
// solver iteration. Errors are returned only for malformed problems; a
// solver that fails to converge is reported through Result.Success.
func (o *Optimizer) Fit(p Problem, observers ...Observer) (*Result, error) {
	if len(p.Depths) != len(p.Observed) {
		return nil, fmt.Errorf("inverse: %d depths, %d observations", len(p.Depths), len(p.Observed))
	}
	if p.PeTop < 0 {
		return nil, fmt.Errorf("%w: top inflow %g", thermal.ErrNegativePe, p.PeTop)
	}
	if err := thermal.ValidatePhysics(p.Physics); err != nil {
		return nil, err
	}
	if err := thermal.ValidateBoundaries(p.Boundaries); err != nil {
		return nil, err
	}

	k := p.Boundaries.Len()
	free := k - 2
	if len(p.Initial) > 0 && len(p.Initial) != max(free, 0) {
		return nil, fmt.Errorf("%w: %d guesses for %d interior segments", ErrGuessCount, len(p.Initial), max(free, 0))
	}

	obj := newObjective(p)

	// Nothing to fit: no segments, a single segment, or only the two fixed
	// endpoints.
	if free <= 0 || p.PeTop == 0 {
		res := o.degenerate(k, p.PeTop)
		if k >= 2 {
			r := make([]float64, len(p.Observed))
			obj.residuals(r, make([]float64, max(free, 0)))
			res.Loss = sumSquares(r)
			res.Evaluations = obj.evals
		}
		o.logger.Debugf("%d segments found, skipping the solver: Pe=%v", k, res.PeList)
		return res, nil
	}

	u0 := make([]float64, free)
	var deltas []float64
	if len(p.Initial) == free {
		deltas = Deltas(p.Initial, p.PeTop)
	} else {
		deltas = make([]float64, free)
		for i := range deltas {
			deltas[i] = p.PeTop / float64(k-1)
		}
	}
	for i, d := range deltas {
		u0[i] = fromDelta(d, p.PeTop)
	}

	var obs Observer = nopObserver{}
	if len(observers) > 0 {
		obs = multiObserver(observers)
	}

	o.logger.Debugf("fitting %d interior segments with %s (Pe_top=%g, %d samples)", free, o.method, p.PeTop, len(p.Depths))
	sol := o.solver.solve(obj, u0, o.settings, obs)

	res := &Result{
		Method:      o.method,
		PeList:      obj.peList(sol.u),
		Deltas:      obj.deltas(sol.u),
		Loss:        sol.loss,
		Success:     sol.success,
		Message:     sol.message,
		Iterations:  sol.iterations,
		Evaluations: obj.evals,
	}
	if res.Success {
		o.logger.Debugf("%s converged after %d iterations: loss=%g Pe=%v", o.method, res.Iterations, res.Loss, res.PeList)
	} else {
		o.logger.Warnf("%s did not converge after %d iterations: %s", o.method, res.Iterations, res.Message)
	}
	return res, nil
}

func (o *Optimizer) degenerate(k int, peTop float64) *Result {
	var pe []float64
	switch {
	case k == 0:
		pe = []float64{0}
	case peTop == 0:
		pe = make([]float64, max(k, 2))
	default:
		pe = Reconstruct(make([]float64, max(k-2, 0)), peTop, max(k, 2))
	}
	return &Result{
		Method:  o.method,
		PeList:  pe,
		Success: true,
		Message: "no free parameters",
	}
}
