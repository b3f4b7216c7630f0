package pipeline

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MishaelXV/Diplom-project/internal/detect"
	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/metric"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// Output is everything a run hands to reporting. It holds plain values only.
type Output struct {
	RunID         string                    `json:"run_id" msgpack:"run_id"`
	Name          string                    `json:"name,omitempty" msgpack:"name,omitempty"`
	Method        string                    `json:"method" msgpack:"method"`
	PeList        []float64                 `json:"pe" msgpack:"pe"`
	Debits        []float64                 `json:"debits" msgpack:"debits"`
	History       []inverse.IterationRecord `json:"history,omitempty" msgpack:"history,omitempty"`
	Left          []float64                 `json:"left" msgpack:"left"`
	Right         []float64                 `json:"right" msgpack:"right"`
	Depths        []float64                 `json:"depths" msgpack:"depths"`
	Temps         []float64                 `json:"temps" msgpack:"temps"`
	Success       bool                      `json:"success" msgpack:"success"`
	Message       string                    `json:"message" msgpack:"message"`
	Loss          Score                     `json:"loss" msgpack:"loss"`
	Iterations    int                       `json:"iterations" msgpack:"iterations"`
	Deviation     Score                     `json:"deviation" msgpack:"deviation"`
	BoundaryScore *metric.BoundaryScore     `json:"boundary_score,omitempty" msgpack:"boundary_score,omitempty"`
	Error         string                    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Estimator runs detection and the inverse fit for one well at a time.
type Estimator struct {
	logger    *zap.SugaredLogger
	predictor detect.HyperparameterPredictor
	cache     *Cache
}

// NewEstimator creates an Estimator. predictor must be safe for concurrent
// reads when the Estimator is used by Batch; cache may be nil.
func NewEstimator(logger *zap.SugaredLogger, predictor detect.HyperparameterPredictor, cache *Cache) *Estimator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if predictor == nil {
		predictor = detect.DefaultPredictor()
	}
	return &Estimator{
		logger:    logger,
		predictor: predictor,
		cache:     cache,
	}
}

// withoutCache returns a copy that shares the predictor but no cache.
func (e *Estimator) withoutCache() *Estimator {
	return &Estimator{logger: e.logger, predictor: e.predictor}
}

// Run estimates the Pe profile of in. Input contract violations are returned
// as errors; a fit that does not converge is reported in the Output.
func (e *Estimator) Run(ctx context.Context, in Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = withDefaults(in)

	log := e.logger
	if in.Name != "" {
		log = log.With("well", in.Name)
	}

	s, err := e.profile(in)
	if err != nil {
		return nil, err
	}

	found, err := e.detect(log, in, s)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, history, err := e.fit(log, in, s, found)
	if err != nil {
		return nil, err
	}

	out := &Output{
		RunID:      uuid.NewString(),
		Name:       in.Name,
		Method:     string(res.Method),
		PeList:     res.PeList,
		Debits:     thermal.Debits(res.PeList, in.Geometry),
		History:    history,
		Left:       found.Left,
		Right:      found.Right,
		Depths:     s.Depths,
		Temps:      s.Temps,
		Success:    res.Success,
		Message:    res.Message,
		Loss:       Score(res.Loss),
		Iterations: res.Iterations,
		Deviation:  Score(math.NaN()),
	}

	if in.Truth != nil {
		out.Deviation = Score(metric.Deviation(
			metric.Candidate{Boundaries: in.Truth.Boundaries, PeList: in.Truth.PeList},
			metric.Candidate{Boundaries: found, PeList: res.PeList},
			metric.DeviationOptions{Percent: true},
		))
		score := metric.BoundaryErrors(in.Truth.Boundaries, found)
		out.BoundaryScore = &score
	}

	log.Infof("run %s: %d segments, Pe=%v success=%t deviation=%.4g%%", out.RunID, found.Len(), out.PeList, out.Success, out.Deviation)
	return out, nil
}

func withDefaults(in Input) Input {
	// Validate has already accepted the name
	in.Method, _ = inverse.ParseMethod(string(in.Method))
	if in.Post == (detect.Postprocessor{}) {
		in.Post = detect.DefaultPostprocessor()
	}
	if in.Geometry == (thermal.WellGeometry{}) {
		in.Geometry = thermal.DefaultGeometry()
	}
	return in
}

// profile returns the series to work on: the measurement, or a synthetic
// profile of the truth with noise.
func (e *Estimator) profile(in Input) (series.Series, error) {
	if in.Measurement != nil {
		return in.Measurement.Clone(), nil
	}
	syn := series.NewSynthesizer(in.Physics, in.Sigma, in.Seed)
	out, err := syn.Synthesize(in.Truth.Boundaries, in.Truth.PeList, in.N)
	if err != nil {
		return series.Series{}, err
	}
	return out.Observed(), nil
}

func (e *Estimator) detect(log *zap.SugaredLogger, in Input, s series.Series) (thermal.Boundaries, error) {
	predictor := e.predictor
	cached := e.cache != nil
	if in.Predictor != nil {
		predictor = in.Predictor
		cached = false
	}

	var key uint64
	if cached {
		key = detectionKey(in)
		if b, ok := e.cache.getBoundaries(key); ok {
			log.Debugf("boundaries for %016x served from cache", key)
			return b, nil
		}
	}

	finder := detect.NewFinder(log, predictor, in.Post)
	det, err := finder.Find(s, detect.Query{
		Pe0:   in.peTop(),
		A:     in.Physics.A,
		Sigma: in.Sigma,
		N:     s.Len(),
	})
	if err != nil {
		return thermal.Boundaries{}, err
	}

	if cached {
		e.cache.putBoundaries(key, det.Boundaries)
	}
	return det.Boundaries, nil
}

func (e *Estimator) fit(log *zap.SugaredLogger, in Input, s series.Series, found thermal.Boundaries) (*inverse.Result, []inverse.IterationRecord, error) {
	var key uint64
	if e.cache != nil {
		key = fitKey(in, found)
		if res, history, ok := e.cache.getFit(key); ok {
			log.Debugf("fit for %016x served from cache", key)
			return res, history, nil
		}
	}

	opt, err := inverse.NewOptimizer(log, in.Method, in.Solver)
	if err != nil {
		return nil, nil, err
	}

	initial := in.Initial
	if len(initial) > 0 && len(initial) != max(found.Len()-2, 0) {
		log.Debugf("ignoring %d initial guesses for %d detected segments", len(initial), found.Len())
		initial = nil
	}

	var history inverse.History
	res, err := opt.Fit(inverse.Problem{
		Depths:     s.Depths,
		Observed:   s.Temps,
		Boundaries: found,
		Physics:    in.Physics,
		PeTop:      in.peTop(),
		Initial:    initial,
	}, &history)
	if err != nil {
		return nil, nil, err
	}

	if e.cache != nil {
		e.cache.putFit(key, res, history.Records)
	}
	return res, history.Records, nil
}

// BoundaryOutput is the result of a detection-only run.
type BoundaryOutput struct {
	Name          string                `json:"name,omitempty" msgpack:"name,omitempty"`
	Left          []float64             `json:"left" msgpack:"left"`
	Right         []float64             `json:"right" msgpack:"right"`
	BoundaryScore *metric.BoundaryScore `json:"boundary_score,omitempty" msgpack:"boundary_score,omitempty"`
}

// Detect runs boundary detection only.
func (e *Estimator) Detect(ctx context.Context, in Input) (*BoundaryOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = withDefaults(in)

	log := e.logger
	if in.Name != "" {
		log = log.With("well", in.Name)
	}

	s, err := e.profile(in)
	if err != nil {
		return nil, err
	}
	found, err := e.detect(log, in, s)
	if err != nil {
		return nil, err
	}

	out := &BoundaryOutput{Name: in.Name, Left: found.Left, Right: found.Right}
	if in.Truth != nil {
		score := metric.BoundaryErrors(in.Truth.Boundaries, found)
		out.BoundaryScore = &score
	}
	return out, nil
}
