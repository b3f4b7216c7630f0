package main

import (
	"errors"

	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/pipeline"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
	"github.com/MishaelXV/Diplom-project/pkg/config"
)

// contractErrors are rejected inputs, as opposed to failures of the tool.
var contractErrors = []error{
	thermal.ErrInvalidPhysics,
	thermal.ErrBoundaryMismatch,
	thermal.ErrNegativeBoundary,
	thermal.ErrUnorderedBoundaries,
	thermal.ErrPeCountMismatch,
	thermal.ErrNegativePe,
	series.ErrLengthMismatch,
	series.ErrMissingColumn,
	inverse.ErrUnknownMethod,
	inverse.ErrGuessCount,
	pipeline.ErrNoProfile,
	pipeline.ErrSampleCount,
	config.ErrInvalidScenario,
}

func isContractError(err error) bool {
	for _, target := range contractErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// describeError renders err for the terminal.
func describeError(err error) string {
	if isContractError(err) {
		return "invalid input: " + err.Error()
	}
	return "error: " + err.Error()
}
