// Package detect locates the open segments of a well in a temperature profile.
// Open segments show up as rising stretches of the normalised, smoothed
// temperature; sealed segments are flat.
package detect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// GrowthThreshold is the derivative above which a noise-free sample counts as
// rising.
const GrowthThreshold = 1e-6

// Query describes the problem a HyperparameterPredictor is asked about.
type Query struct {
	Pe0   float64 `json:"pe0"`
	A     float64 `json:"a"`
	Sigma float64 `json:"sigma"`
	N     int     `json:"n"`
}

// HyperparameterPredictor maps problem conditions to the window size and
// minimal slope used by the sliding-window detector. Implementations must be
// safe for concurrent use.
type HyperparameterPredictor interface {
	Predict(q Query) (windowSize int, minSlope float64, err error)
}

// DetectGrowth flags the samples of a normalised profile that lie on a rising
// stretch. With sigma == 0 the discrete derivative is thresholded directly.
// Otherwise every window of windowSize consecutive samples is fitted with a
// least-squares line and flagged as a whole when its slope exceeds minSlope;
// both values come from pred.
func DetectGrowth(zNorm, tNorm []float64, sigma float64, pred HyperparameterPredictor, q Query) ([]bool, error) {
	if len(zNorm) != len(tNorm) {
		return nil, fmt.Errorf("detect: %d depths, %d temperatures", len(zNorm), len(tNorm))
	}
	if sigma == 0 {
		return GrowthNoiseFree(tNorm), nil
	}
	if pred == nil {
		return nil, fmt.Errorf("detect: a hyperparameter predictor is required when sigma > 0")
	}

	ws, ms, err := pred.Predict(q)
	if err != nil {
		return nil, fmt.Errorf("predict detector parameters: %w", err)
	}
	return GrowthWindowed(zNorm, tNorm, ws, ms), nil
}

// GrowthNoiseFree flags samples whose backward difference exceeds
// GrowthThreshold. The first sample uses the forward difference.
func GrowthNoiseFree(t []float64) []bool {
	mask := make([]bool, len(t))
	if len(t) < 2 {
		return mask
	}

	mask[0] = t[1]-t[0] > GrowthThreshold
	for i := 1; i < len(t); i++ {
		mask[i] = t[i]-t[i-1] > GrowthThreshold
	}
	return mask
}

// GrowthWindowed flags every window of windowSize samples whose fitted slope
// exceeds minSlope. windowSize is raised to 2 if smaller; a window longer than
// the series flags nothing.
func GrowthWindowed(z, t []float64, windowSize int, minSlope float64) []bool {
	mask := make([]bool, len(t))
	if windowSize < 2 {
		windowSize = 2
	}
	if windowSize > len(t) {
		return mask
	}

	for i := 0; i+windowSize <= len(t); i++ {
		_, slope := stat.LinearRegression(z[i:i+windowSize], t[i:i+windowSize], nil, false)
		if math.IsNaN(slope) || slope <= minSlope {
			continue
		}
		for j := i; j < i+windowSize; j++ {
			mask[j] = true
		}
	}
	return mask
}
