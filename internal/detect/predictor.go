package detect

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/MishaelXV/Diplom-project/internal/series"
)

// FixedPredictor always returns the same detector parameters.
type FixedPredictor struct {
	WindowSize int
	MinSlope   float64
}

// DefaultPredictor returns the fixed parameters used when no trained table is
// available.
func DefaultPredictor() FixedPredictor {
	return FixedPredictor{WindowSize: 5, MinSlope: 0.4}
}

// Predict implements HyperparameterPredictor.
func (f FixedPredictor) Predict(Query) (int, float64, error) {
	return f.WindowSize, f.MinSlope, nil
}

// TrainingRow is one tuned configuration: the problem conditions and the
// detector parameters that worked best for them.
type TrainingRow struct {
	Pe0, A, Sigma float64
	N             int
	WindowSize    float64
	MinSlope      float64
}

// ErrEmptyTable is returned when a predictor table has no rows.
var ErrEmptyTable = errors.New("predictor table is empty")

// TablePredictor answers queries by inverse-distance weighting the k nearest
// tuned configurations, one estimate per output. Features are z-scored so
// that Pe0 and sigma weigh alike. It is immutable after construction.
type TablePredictor struct {
	features [][4]float64
	ws       []float64
	ms       []float64
	mean     [4]float64
	std      [4]float64
	k        int
}

// NewTablePredictor builds a predictor over rows using k neighbours.
func NewTablePredictor(rows []TrainingRow, k int) (*TablePredictor, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	if k < 1 {
		k = 5
	}

	p := &TablePredictor{
		features: make([][4]float64, len(rows)),
		ws:       make([]float64, len(rows)),
		ms:       make([]float64, len(rows)),
		k:        min(k, len(rows)),
	}

	cols := [4][]float64{}
	for i := range cols {
		cols[i] = make([]float64, len(rows))
	}
	for i, r := range rows {
		raw := [4]float64{r.Pe0, r.A, r.Sigma, float64(r.N)}
		for j, v := range raw {
			cols[j][i] = v
		}
		p.ws[i] = r.WindowSize
		p.ms[i] = r.MinSlope
	}

	for j := range cols {
		mean, std := stat.MeanStdDev(cols[j], nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		p.mean[j], p.std[j] = mean, std
	}
	for i, r := range rows {
		p.features[i] = p.scale(r.Pe0, r.A, r.Sigma, float64(r.N))
	}
	return p, nil
}

// LoadTablePredictor reads a table with the columns Pe0, A, sigma, N,
// window_size and min_slope from a TSV, CSV or XLSX file.
func LoadTablePredictor(path string, k int) (*TablePredictor, error) {
	table, err := series.ReadTable(path, "")
	if err != nil {
		return nil, err
	}

	names := []string{"Pe0", "A", "sigma", "N", "window_size", "min_slope"}
	cols := make([][]float64, len(names))
	oks := make([][]bool, len(names))
	for i, name := range names {
		cols[i], oks[i], err = table.Floats(name)
		if err != nil {
			return nil, fmt.Errorf("predictor table %s: %w", path, err)
		}
	}

	rows := make([]TrainingRow, 0, len(table.Rows))
	for i := range table.Rows {
		complete := true
		for _, ok := range oks {
			complete = complete && ok[i]
		}
		if !complete {
			continue
		}
		rows = append(rows, TrainingRow{
			Pe0:        cols[0][i],
			A:          cols[1][i],
			Sigma:      cols[2][i],
			N:          int(cols[3][i]),
			WindowSize: cols[4][i],
			MinSlope:   cols[5][i],
		})
	}
	return NewTablePredictor(rows, k)
}

// Len returns the number of tuned configurations.
func (p *TablePredictor) Len() int {
	return len(p.features)
}

// Predict implements HyperparameterPredictor. The window size is rounded to
// an integer and the slope to three decimals.
func (p *TablePredictor) Predict(q Query) (int, float64, error) {
	x := p.scale(q.Pe0, q.A, q.Sigma, float64(q.N))

	type neighbour struct {
		idx  int
		dist float64
	}
	nb := make([]neighbour, len(p.features))
	for i, f := range p.features {
		var d float64
		for j := range f {
			d += (f[j] - x[j]) * (f[j] - x[j])
		}
		nb[i] = neighbour{i, math.Sqrt(d)}
	}
	sort.Slice(nb, func(i, j int) bool { return nb[i].dist < nb[j].dist })

	var ws, ms float64
	if nb[0].dist == 0 {
		ws, ms = p.ws[nb[0].idx], p.ms[nb[0].idx]
	} else {
		var wsum float64
		for _, n := range nb[:p.k] {
			w := 1 / n.dist
			ws += w * p.ws[n.idx]
			ms += w * p.ms[n.idx]
			wsum += w
		}
		ws /= wsum
		ms /= wsum
	}

	return int(math.Round(ws)), math.Round(ms*1000) / 1000, nil
}

func (p *TablePredictor) scale(pe0, a, sigma, n float64) [4]float64 {
	raw := [4]float64{pe0, a, sigma, n}
	var out [4]float64
	for j := range raw {
		out[j] = (raw[j] - p.mean[j]) / p.std[j]
	}
	return out
}
