package detect

import (
	"go.uber.org/zap"

	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// Detection is the outcome of a boundary search, in both index and physical
// coordinates.
type Detection struct {
	Boundaries thermal.Boundaries `json:"boundaries"`
	Intervals  []Interval         `json:"intervals"`
	Mask       []bool             `json:"-"`
	Smoothed   []float64          `json:"-"`
}

// Finder runs the whole detection chain on a measured or synthetic profile:
// normalisation, median smoothing, growth detection, interval clean-up and
// the mapping back to physical depth.
type Finder struct {
	logger    *zap.SugaredLogger
	predictor HyperparameterPredictor
	post      Postprocessor
}

// NewFinder creates a Finder. A nil predictor falls back to DefaultPredictor.
func NewFinder(logger *zap.SugaredLogger, predictor HyperparameterPredictor, post Postprocessor) *Finder {
	if predictor == nil {
		predictor = DefaultPredictor()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Finder{
		logger:    logger,
		predictor: predictor,
		post:      post,
	}
}

// Find locates the open segments of s. q.Sigma is the noise level the
// profile was measured with; zero selects the exact derivative test. Finding
// fewer or more segments than the well really has is not an error.
func (f *Finder) Find(s series.Series, q Query) (*Detection, error) {
	if s.Len() == 0 {
		return &Detection{}, nil
	}

	norm := s.Normalized()
	smoothed := series.Smooth(norm.Temps)

	mask, err := DetectGrowth(norm.Depths, smoothed, q.Sigma, f.predictor, q)
	if err != nil {
		return nil, err
	}

	iv := f.post.Intervals(norm.Depths, mask)
	left, right := Edges(norm.Depths, iv)

	lo, hi := s.DepthRange()
	b := thermal.Boundaries{
		Left:  Restore(left, lo, hi),
		Right: Restore(right, lo, hi),
	}

	f.logger.Debugf("detected %d open segments over %d samples (sigma=%g)", len(iv), s.Len(), q.Sigma)
	for i := range b.Left {
		f.logger.Debugf("  segment %d: [%.3f, %.3f]", i, b.Left[i], b.Right[i])
	}

	return &Detection{
		Boundaries: b,
		Intervals:  iv,
		Mask:       mask,
		Smoothed:   smoothed,
	}, nil
}
