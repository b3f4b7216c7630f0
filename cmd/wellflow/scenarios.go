package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/MishaelXV/Diplom-project/internal/detect"
	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/pipeline"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/pkg/config"
)

// predictorNeighbours is the k of every table predictor.
const predictorNeighbours = 5

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// openProvider opens a scenario source, choosing the backend by extension.
func openProvider(path string) (config.ScenarioProvider, error) {
	if path == "" {
		return nil, eris.New("no scenario source: pass --scenarios or set scenarios in wellflow.yaml")
	}
	if isSQLitePath(path) {
		return config.NewSQLiteProvider(path, logger)
	}
	return config.NewYAMLProvider(path), nil
}

// loadScenarios returns the named scenarios in the order given, or every
// scenario when names is empty.
func loadScenarios(path string, names []string) ([]config.ScenarioData, error) {
	p, err := openProvider(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if len(names) == 0 {
		return p.LoadScenarios()
	}

	out := make([]config.ScenarioData, 0, len(names))
	for _, name := range names {
		s, err := p.GetScenario(name)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// inputBuilder turns scenarios into pipeline inputs. Predictor tables are
// read once and shared between the wells that name them.
type inputBuilder struct {
	baseDir string
	tables  map[string]*detect.TablePredictor
}

func newInputBuilder(scenarioPath string) *inputBuilder {
	b := &inputBuilder{tables: make(map[string]*detect.TablePredictor)}
	if !isSQLitePath(scenarioPath) {
		b.baseDir = filepath.Dir(scenarioPath)
	}
	return b
}

// resolve makes a relative path relative to the scenario file when it does
// not exist relative to the working directory.
func (b *inputBuilder) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || b.baseDir == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(b.baseDir, path)
}

func (b *inputBuilder) predictor(d config.DetectionData) (detect.HyperparameterPredictor, error) {
	switch {
	case d.WindowSize > 0 && d.MinSlope > 0:
		return detect.FixedPredictor{WindowSize: d.WindowSize, MinSlope: d.MinSlope}, nil
	case d.PredictorTable != "":
		path := b.resolve(d.PredictorTable)
		if p, ok := b.tables[path]; ok {
			return p, nil
		}
		p, err := detect.LoadTablePredictor(path, predictorNeighbours)
		if err != nil {
			return nil, eris.Wrapf(err, "load predictor table %s", path)
		}
		logger.Debugf("loaded %d tuned configurations from %s", p.Len(), path)
		b.tables[path] = p
		return p, nil
	}
	return nil, nil
}

// build converts one scenario.
func (b *inputBuilder) build(s config.ScenarioData) (pipeline.Input, error) {
	method, err := inverse.ParseMethod(s.Method)
	if err != nil {
		return pipeline.Input{}, err
	}

	in := pipeline.Input{
		Name:    s.Name,
		Physics: s.Physics,
		Sigma:   s.Sigma,
		N:       s.N,
		Seed:    s.Seed,
		PeTop:   s.PeTop,
		Initial: s.Initial,
		Method:  method,
		Solver: inverse.Settings{
			MaxIterations: s.Solver.MaxIterations,
			FTol:          s.Solver.FTol,
			XTol:          s.Solver.XTol,
			Seed:          s.Seed,
		},
		Post: detect.Postprocessor{
			MergeGap:   s.Detection.MergeGap,
			MinLength:  s.Detection.MinLength,
			ExtendLast: true,
		},
	}

	if s.HasTruth() {
		in.Truth = &pipeline.Truth{Boundaries: s.Boundaries, PeList: s.Pe}
	}
	if s.Measurement != nil {
		spec := *s.Measurement
		spec.Path = b.resolve(spec.Path)
		m, err := series.ReadThermogram(spec)
		if err != nil {
			return pipeline.Input{}, eris.Wrapf(err, "scenario %q: read thermogram", s.Name)
		}
		in.Measurement = &m
	}

	pred, err := b.predictor(s.Detection)
	if err != nil {
		return pipeline.Input{}, eris.Wrapf(err, "scenario %q", s.Name)
	}
	in.Predictor = pred
	return in, nil
}
