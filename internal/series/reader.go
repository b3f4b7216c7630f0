package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a requested column is not in the header.
var ErrMissingColumn = errors.New("column not found")

// Table is a header row plus string cells, as read from a spreadsheet or a
// delimited text file.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the index of the header named name.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Headers {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q (have %s)", ErrMissingColumn, name, strings.Join(t.Headers, ", "))
}

// Floats parses the named column. Rows with an empty cell in that column are
// reported through the second return value as false.
func (t *Table) Floats(name string) ([]float64, []bool, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, nil, err
	}

	values := make([]float64, len(t.Rows))
	ok := make([]bool, len(t.Rows))
	for i, row := range t.Rows {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d column %q: %w", i+2, name, err)
		}
		values[i] = v
		ok[i] = true
	}
	return values, ok, nil
}

// ReadTable reads an .xlsx workbook (sheet, or the first sheet when empty),
// a .tsv/.txt tab-separated file or a .csv file.
func ReadTable(path, sheet string) (*Table, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcelRows(path, sheet)
	case ".tsv", ".txt":
		rows, err = readDelimitedRows(path, '\t')
	default:
		rows, err = readDelimitedRows(path, ',')
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s must have a header row and at least one data row", path)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

func readExcelRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readDelimitedRows(path string, comma rune) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// ThermogramSpec describes how a measured thermogram maps onto a Series.
type ThermogramSpec struct {
	Path        string  `json:"path" yaml:"path"`
	Sheet       string  `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	DepthColumn string  `json:"depth_column" yaml:"depth_column"`
	TempColumn  string  `json:"temp_column" yaml:"temp_column"`
	Radius      float64 `json:"radius,omitempty" yaml:"radius,omitempty"`     // depths are divided by this when set
	TRef        float64 `json:"t_ref,omitempty" yaml:"t_ref,omitempty"`       // temperature mapped to θ = 0
	TTop        float64 `json:"t_top,omitempty" yaml:"t_top,omitempty"`       // temperature mapped to θ = 1
	MaxRows     int     `json:"max_rows,omitempty" yaml:"max_rows,omitempty"` // 0 reads everything
}

// DefaultThermogramSpec returns the column layout of the logging tool export.
func DefaultThermogramSpec(path string) ThermogramSpec {
	return ThermogramSpec{
		Path:        path,
		DepthColumn: "d",
		TempColumn:  "T (PLT)",
		Radius:      0.1,
		TRef:        26,
		TTop:        63.57778,
	}
}

// ReadThermogram loads a measured profile. Depths are made dimensionless by
// the well radius and temperatures by θ = (T − TRef)/(TTop − TRef) when the
// spec sets both. Rows missing either value are skipped and the result is
// ordered by depth.
func ReadThermogram(spec ThermogramSpec) (Series, error) {
	table, err := ReadTable(spec.Path, spec.Sheet)
	if err != nil {
		return Series{}, err
	}
	if spec.MaxRows > 0 && len(table.Rows) > spec.MaxRows {
		table.Rows = table.Rows[:spec.MaxRows]
	}

	depths, okDepth, err := table.Floats(spec.DepthColumn)
	if err != nil {
		return Series{}, err
	}
	temps, okTemp, err := table.Floats(spec.TempColumn)
	if err != nil {
		return Series{}, err
	}

	scaleT := spec.TTop != spec.TRef
	type sample struct{ z, t float64 }
	samples := make([]sample, 0, len(depths))
	for i := range depths {
		if !okDepth[i] || !okTemp[i] {
			continue
		}
		z, t := depths[i], temps[i]
		if spec.Radius > 0 {
			z /= spec.Radius
		}
		if scaleT {
			t = (t - spec.TRef) / (spec.TTop - spec.TRef)
		}
		samples = append(samples, sample{z, t})
	}
	if len(samples) == 0 {
		return Series{}, fmt.Errorf("%s: no rows with both %q and %q", spec.Path, spec.DepthColumn, spec.TempColumn)
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].z < samples[j].z })

	s := Series{
		Depths: make([]float64, len(samples)),
		Temps:  make([]float64, len(samples)),
	}
	for i, smp := range samples {
		s.Depths[i] = smp.z
		s.Temps[i] = smp.t
	}
	return s, nil
}
