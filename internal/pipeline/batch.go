package pipeline

import (
	"context"
	"math"
	"runtime"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// Summary aggregates the scores of a batch. Statistics ignore runs whose
// deviation could not be evaluated; they are NaN when no run could.
type Summary struct {
	Runs      int   `json:"runs" msgpack:"runs"`
	Failed    int   `json:"failed" msgpack:"failed"`
	Converged int   `json:"converged" msgpack:"converged"`
	Scored    int   `json:"scored" msgpack:"scored"`
	Mean      Score `json:"mean" msgpack:"mean"`
	Median    Score `json:"median" msgpack:"median"`
	StdDev    Score `json:"stddev" msgpack:"stddev"`
	Min       Score `json:"min" msgpack:"min"`
	Max       Score `json:"max" msgpack:"max"`
}

// Batch runs every input on at most workers goroutines and returns the
// outputs in input order. A failing input produces an Output carrying the
// error and a NaN deviation; the others still run. The returned error is
// non-nil only when ctx is cancelled.
func (e *Estimator) Batch(ctx context.Context, inputs []Input, workers int) ([]Output, Summary, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	e.logger.Infof("running %d wells on %d workers", len(inputs), workers)

	outputs := make([]Output, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			// each task gets its own estimator; the cache is single-goroutine
			est := e.withoutCache()
			out, err := est.Run(gctx, in)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Warnf("well %d (%s) failed: %v", i, in.Name, err)
				outputs[i] = Output{
					Name:      in.Name,
					Method:    string(in.Method),
					Deviation: Score(math.NaN()),
					Loss:      Score(math.NaN()),
					Message:   "invalid input",
					Error:     err.Error(),
				}
				return nil
			}
			outputs[i] = *out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outputs, Summarize(outputs), err
	}

	sum := Summarize(outputs)
	e.logger.Infof("batch complete: %d runs, %d failed, %d converged, mean deviation %.4g%%", sum.Runs, sum.Failed, sum.Converged, sum.Mean)
	return outputs, sum, nil
}

// Summarize computes the batch statistics of outputs.
func Summarize(outputs []Output) Summary {
	s := Summary{Runs: len(outputs)}
	var scores stats.Float64Data
	for _, o := range outputs {
		if o.Error != "" {
			s.Failed++
			continue
		}
		if o.Success {
			s.Converged++
		}
		if o.Deviation.Valid() {
			scores = append(scores, float64(o.Deviation))
		}
	}
	s.Scored = len(scores)

	s.Mean = statOrNaN(stats.Mean(scores))
	s.Median = statOrNaN(stats.Median(scores))
	s.StdDev = statOrNaN(stats.StandardDeviation(scores))
	s.Min = statOrNaN(stats.Min(scores))
	s.Max = statOrNaN(stats.Max(scores))
	return s
}

func statOrNaN(v float64, err error) Score {
	if err != nil {
		return Score(math.NaN())
	}
	return Score(v)
}
