// Package pipeline composes boundary detection and the inverse fit into one
// run per well, and fans many runs out over a bounded worker pool.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/MishaelXV/Diplom-project/internal/detect"
	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// ErrNoProfile is returned when an input has neither a truth to synthesise
// from nor a measurement.
var ErrNoProfile = errors.New("input has neither a declared truth nor a measurement")

// ErrSampleCount is returned when a synthetic run asks for no samples.
var ErrSampleCount = errors.New("sample count must be positive")

// Truth is a declared segment partition with its Pe list.
type Truth struct {
	Boundaries thermal.Boundaries
	PeList     []float64
}

// Input describes one well. Either Truth or Measurement must be set. With a
// truth the profile is synthesised and the recovered values are scored
// against it; a measurement is used as is.
type Input struct {
	Name        string
	Physics     thermal.Physics
	Sigma       float64
	N           int
	Seed        uint64
	Truth       *Truth
	Measurement *series.Series

	// PeTop is the known top inflow. It defaults to the first truth value.
	PeTop float64

	// Initial holds optional guesses for the interior segments. They are
	// used only when detection finds the matching number of segments.
	Initial []float64

	Method   inverse.Method
	Solver   inverse.Settings
	Post     detect.Postprocessor
	Geometry thermal.WellGeometry

	// Predictor replaces the estimator's hyperparameter predictor for this
	// run. Runs with their own predictor bypass the boundary cache.
	Predictor detect.HyperparameterPredictor
}

// peTop returns the top inflow of the run.
func (in Input) peTop() float64 {
	if in.PeTop == 0 && in.Truth != nil && len(in.Truth.PeList) > 0 {
		return in.Truth.PeList[0]
	}
	return in.PeTop
}

// Validate checks the input contract. Violations are returned as errors and
// never corrected.
func (in Input) Validate() error {
	if err := thermal.ValidatePhysics(in.Physics); err != nil {
		return err
	}
	if in.Sigma < 0 {
		return fmt.Errorf("%w: sigma %g", thermal.ErrInvalidPhysics, in.Sigma)
	}
	if in.PeTop < 0 {
		return fmt.Errorf("%w: top inflow %g", thermal.ErrNegativePe, in.PeTop)
	}
	if _, err := inverse.ParseMethod(string(in.Method)); err != nil {
		return err
	}

	switch {
	case in.Measurement != nil:
		if len(in.Measurement.Depths) != len(in.Measurement.Temps) {
			return fmt.Errorf("%w: %d depths, %d temperatures", series.ErrLengthMismatch,
				len(in.Measurement.Depths), len(in.Measurement.Temps))
		}
	case in.Truth != nil:
		if in.N <= 0 {
			return fmt.Errorf("%w: got %d", ErrSampleCount, in.N)
		}
	default:
		return ErrNoProfile
	}

	if in.Truth != nil {
		if err := thermal.Validate(in.Truth.Boundaries, in.Truth.PeList, in.Physics); err != nil {
			return err
		}
	}
	return nil
}
