package config

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/MishaelXV/Diplom-project/internal/detect"
	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// ErrScenarioNotFound is returned by GetScenario for an unknown name.
var ErrScenarioNotFound = errors.New("scenario not found")

// ErrInvalidScenario marks a scenario that breaks the input contract.
var ErrInvalidScenario = errors.New("invalid scenario")

// ScenarioProvider defines the interface for scenario configuration sources
type ScenarioProvider interface {
	// Load every scenario
	LoadScenarios() ([]ScenarioData, error)

	// Get one scenario by name
	GetScenario(name string) (*ScenarioData, error)

	IsReadOnly() bool
	Close() error
}

// ScenarioData is one well to estimate: either a declared truth that is
// synthesised with noise, or a measured thermogram.
type ScenarioData struct {
	Name       string             `json:"name" yaml:"name"`
	Physics    thermal.Physics    `json:"physics" yaml:"physics"`
	Sigma      float64            `json:"sigma" yaml:"sigma"`
	N          int                `json:"n" yaml:"n"`
	Seed       uint64             `json:"seed" yaml:"seed"`
	Boundaries thermal.Boundaries `json:"boundaries" yaml:"boundaries"`
	Pe         []float64          `json:"pe,omitempty" yaml:"pe,omitempty"`
	PeTop      float64            `json:"pe_top,omitempty" yaml:"pe_top,omitempty"`
	Initial    []float64          `json:"initial,omitempty" yaml:"initial,omitempty"`
	Method     string             `json:"method,omitempty" yaml:"method,omitempty"`
	Detection  DetectionData      `json:"detection" yaml:"detection"`
	Solver     SolverData         `json:"solver" yaml:"solver"`

	Measurement *series.ThermogramSpec `json:"measurement,omitempty" yaml:"measurement,omitempty"`
}

// DetectionData tunes the boundary finder. WindowSize and MinSlope replace
// the hyperparameter predictor when both are set; PredictorTable points to a
// table of tuned runs otherwise.
type DetectionData struct {
	MergeGap       float64 `json:"merge_gap,omitempty" yaml:"merge_gap,omitempty"`
	MinLength      float64 `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	WindowSize     int     `json:"window_size,omitempty" yaml:"window_size,omitempty"`
	MinSlope       float64 `json:"min_slope,omitempty" yaml:"min_slope,omitempty"`
	PredictorTable string  `json:"predictor_table,omitempty" yaml:"predictor_table,omitempty"`
}

// SolverData bounds the inverse fit.
type SolverData struct {
	MaxIterations int     `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	FTol          float64 `json:"ftol,omitempty" yaml:"ftol,omitempty"`
	XTol          float64 `json:"xtol,omitempty" yaml:"xtol,omitempty"`
}

// HasTruth reports whether the scenario declares its segments and Pe list.
func (s *ScenarioData) HasTruth() bool {
	return s.Boundaries.Len() > 0 || len(s.Pe) > 0
}

// ApplyDefaults fills every unset field with its default.
func (s *ScenarioData) ApplyDefaults() {
	d := thermal.DefaultPhysics()
	if s.Physics.ZInf == 0 {
		s.Physics.ZInf = d.ZInf
	}
	if s.Physics.A == 0 {
		s.Physics.A = d.A
	}
	// TG0 and atg may legitimately be zero, so they default only together
	if s.Physics.TG0 == 0 && s.Physics.Atg == 0 {
		s.Physics.TG0 = d.TG0
		s.Physics.Atg = d.Atg
	}

	if m, err := inverse.ParseMethod(s.Method); err == nil {
		s.Method = string(m)
	}

	post := detect.DefaultPostprocessor()
	if s.Detection.MergeGap == 0 {
		s.Detection.MergeGap = post.MergeGap
	}
	if s.Detection.MinLength == 0 {
		s.Detection.MinLength = post.MinLength
	}

	solver := inverse.DefaultSettings()
	if s.Solver.MaxIterations == 0 {
		s.Solver.MaxIterations = solver.MaxIterations
	}
	if s.Solver.FTol == 0 {
		s.Solver.FTol = solver.FTol
	}
	if s.Solver.XTol == 0 {
		s.Solver.XTol = solver.XTol
	}

	if s.Measurement != nil {
		m := series.DefaultThermogramSpec(s.Measurement.Path)
		if s.Measurement.DepthColumn == "" {
			s.Measurement.DepthColumn = m.DepthColumn
		}
		if s.Measurement.TempColumn == "" {
			s.Measurement.TempColumn = m.TempColumn
		}
	}

	if s.PeTop == 0 && len(s.Pe) > 0 {
		s.PeTop = s.Pe[0]
	}
}

// Validate checks the scenario against the input contract.
func (s *ScenarioData) Validate() error {
	if s.Name == "" {
		return eris.Wrap(ErrInvalidScenario, "scenario has no name")
	}
	if _, err := inverse.ParseMethod(s.Method); err != nil {
		return eris.Wrapf(err, "scenario %q", s.Name)
	}
	if s.Sigma < 0 {
		return eris.Wrapf(ErrInvalidScenario, "scenario %q: negative sigma %g", s.Name, s.Sigma)
	}
	if s.PeTop < 0 {
		return eris.Wrapf(thermal.ErrNegativePe, "scenario %q: top inflow %g", s.Name, s.PeTop)
	}
	if s.Detection.WindowSize < 0 || s.Detection.MinSlope < 0 {
		return eris.Wrapf(ErrInvalidScenario, "scenario %q: negative detection hyperparameters", s.Name)
	}

	if s.Measurement != nil {
		if s.Measurement.Path == "" {
			return eris.Wrapf(ErrInvalidScenario, "scenario %q: measurement has no path", s.Name)
		}
		if err := thermal.ValidatePhysics(s.Physics); err != nil {
			return eris.Wrapf(err, "scenario %q", s.Name)
		}
		if !s.HasTruth() {
			return nil
		}
	} else {
		if !s.HasTruth() {
			return eris.Wrapf(ErrInvalidScenario, "scenario %q: needs boundaries and pe, or a measurement", s.Name)
		}
		if s.N <= 0 {
			return eris.Wrapf(ErrInvalidScenario, "scenario %q: sample count must be positive, got %d", s.Name, s.N)
		}
	}

	if err := thermal.Validate(s.Boundaries, s.Pe, s.Physics); err != nil {
		return eris.Wrapf(err, "scenario %q", s.Name)
	}
	if len(s.Initial) > 0 && len(s.Initial) != max(s.Boundaries.Len()-2, 0) {
		return eris.Wrapf(inverse.ErrGuessCount, "scenario %q: %d guesses for %d segments", s.Name, len(s.Initial), s.Boundaries.Len())
	}
	return nil
}

// prepare applies defaults and validates every scenario in place.
func prepare(scenarios []ScenarioData) error {
	seen := make(map[string]bool, len(scenarios))
	for i := range scenarios {
		scenarios[i].ApplyDefaults()
		if err := scenarios[i].Validate(); err != nil {
			return err
		}
		if seen[scenarios[i].Name] {
			return eris.Wrapf(ErrInvalidScenario, "duplicate scenario name %q", scenarios[i].Name)
		}
		seen[scenarios[i].Name] = true
	}
	return nil
}
