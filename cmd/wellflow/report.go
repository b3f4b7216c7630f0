package main

import (
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/MishaelXV/Diplom-project/internal/pipeline"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
	"github.com/MishaelXV/Diplom-project/pkg/migrate"
	"github.com/MishaelXV/Diplom-project/pkg/responseformat"
)

// emit writes raw in a structured format, or table for csv and text.
func emit(w io.Writer, raw any, table responseformat.Tabular) error {
	f := responseformat.NewFormatter(cfg.Format)
	switch cfg.Format {
	case responseformat.FormatCSV, responseformat.FormatText:
		return f.Write(w, table)
	}
	return f.Write(w, raw)
}

// outputWriter returns the destination of results and a function that
// closes it.
func outputWriter() (io.Writer, func() error, error) {
	if cfg.Output == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	fh, err := os.Create(cfg.Output)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", cfg.Output)
	}
	return fh, fh.Close, nil
}

func writeResult(raw any, table responseformat.Tabular) error {
	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	if err := emit(w, raw, table); err != nil {
		closeFn()
		return eris.Wrap(err, "write results")
	}
	return closeFn()
}

func num(v float64) string {
	return thermal.RoundMantissa(v)
}

func score(s pipeline.Score) string {
	if !s.Valid() {
		return "-"
	}
	return num(float64(s))
}

// outputTable lists every recovered Pe, one row per segment.
type outputTable []pipeline.Output

func (t outputTable) Header() []string {
	return []string{"well", "segment", "left", "right", "pe", "debit", "deviation_pct", "success", "message"}
}

func (t outputTable) Rows() [][]string {
	var rows [][]string
	for _, o := range t {
		if o.Error != "" {
			rows = append(rows, []string{o.Name, "-", "", "", "", "", "-", "false", o.Error})
			continue
		}
		for i, pe := range o.PeList {
			left, right, debit := "", "", ""
			if i < len(o.Left) {
				left, right = num(o.Left[i]), num(o.Right[i])
			}
			if i < len(o.Debits) {
				debit = num(o.Debits[i])
			}
			rows = append(rows, []string{
				o.Name, strconv.Itoa(i), left, right, num(pe), debit,
				score(o.Deviation), strconv.FormatBool(o.Success), o.Message,
			})
		}
	}
	return rows
}

// summaryTable is the one-row batch summary.
type summaryTable pipeline.Summary

func (t summaryTable) Header() []string {
	return []string{"runs", "failed", "converged", "scored", "mean_pct", "median_pct", "stddev_pct", "min_pct", "max_pct"}
}

func (t summaryTable) Rows() [][]string {
	return [][]string{{
		strconv.Itoa(t.Runs), strconv.Itoa(t.Failed), strconv.Itoa(t.Converged), strconv.Itoa(t.Scored),
		score(t.Mean), score(t.Median), score(t.StdDev), score(t.Min), score(t.Max),
	}}
}

// boundaryTable lists detected segments.
type boundaryTable []pipeline.BoundaryOutput

func (t boundaryTable) Header() []string {
	return []string{"well", "segment", "left", "right", "mae"}
}

func (t boundaryTable) Rows() [][]string {
	var rows [][]string
	for _, b := range t {
		mae := "-"
		if b.BoundaryScore != nil {
			mae = num(b.BoundaryScore.MAE)
		}
		for i := range b.Left {
			rows = append(rows, []string{b.Name, strconv.Itoa(i), num(b.Left[i]), num(b.Right[i]), mae})
		}
	}
	return rows
}

// syntheticProfile is a generated profile with its noise-free curve.
type syntheticProfile struct {
	Name   string    `json:"name"`
	Depths []float64 `json:"depths"`
	True   []float64 `json:"true"`
	Noisy  []float64 `json:"noisy"`
}

func newSyntheticProfile(name string, s series.Synthetic) syntheticProfile {
	return syntheticProfile{Name: name, Depths: s.Depths, True: s.True, Noisy: s.Noisy}
}

type syntheticTable []syntheticProfile

func (t syntheticTable) Header() []string {
	return []string{"well", "z", "t_true", "t_noisy"}
}

func (t syntheticTable) Rows() [][]string {
	var rows [][]string
	for _, p := range t {
		for i := range p.Depths {
			rows = append(rows, []string{
				p.Name,
				strconv.FormatFloat(p.Depths[i], 'g', -1, 64),
				strconv.FormatFloat(p.True[i], 'g', -1, 64),
				strconv.FormatFloat(p.Noisy[i], 'g', -1, 64),
			})
		}
	}
	return rows
}

// migrationTable reports the schema state of a store.
type migrationTable migrate.Status

func (t migrationTable) Header() []string {
	return []string{"version", "name", "state"}
}

func (t migrationTable) Rows() [][]string {
	rows := [][]string{{strconv.Itoa(t.Current), "current", "applied"}}
	for _, m := range t.Pending {
		rows = append(rows, []string{strconv.Itoa(m.Version), m.Name, "pending"})
	}
	return rows
}
