package config

import (
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// SQLiteProvider implements ScenarioProvider for a SQLite scenario store
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the store at dbPath and migrates it to the latest
// schema.
func NewSQLiteProvider(dbPath string, logger *zap.SugaredLogger) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open scenario store %s", dbPath)
	}

	// a single connection keeps in-memory stores and pragmas consistent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "ping scenario store %s", dbPath)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "enable foreign keys")
	}
	if err := EnsureSchema(db, logger); err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "migrate scenario store %s", dbPath)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// DB returns the underlying connection pool.
func (s *SQLiteProvider) DB() *sql.DB {
	return s.db
}

type scenarioRow struct {
	id   int64
	data ScenarioData
}

// LoadScenarios returns every stored scenario in insertion order
func (s *SQLiteProvider) LoadScenarios() ([]ScenarioData, error) {
	rows, err := s.db.Query(`
		SELECT id, name, z_inf, tg0, atg, a, sigma, n, seed, pe_top, method
		FROM scenarios
		ORDER BY id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "query scenarios")
	}

	var loaded []scenarioRow
	for rows.Next() {
		row, err := scanScenario(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		loaded = append(loaded, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "iterate scenarios")
	}
	rows.Close()

	scenarios := make([]ScenarioData, 0, len(loaded))
	for i := range loaded {
		if err := s.loadChildren(loaded[i].id, &loaded[i].data); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, loaded[i].data)
	}

	if err := prepare(scenarios); err != nil {
		return nil, eris.Wrapf(err, "scenario store %s", s.dbPath)
	}
	return scenarios, nil
}

// GetScenario returns the scenario called name
func (s *SQLiteProvider) GetScenario(name string) (*ScenarioData, error) {
	row, err := scanScenario(s.db.QueryRow(`
		SELECT id, name, z_inf, tg0, atg, a, sigma, n, seed, pe_top, method
		FROM scenarios
		WHERE name = ?
	`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrScenarioNotFound, "scenario %q", name)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadChildren(row.id, &row.data); err != nil {
		return nil, err
	}
	row.data.ApplyDefaults()
	if err := row.data.Validate(); err != nil {
		return nil, err
	}
	return &row.data, nil
}

// SaveScenarios validates scenarios and writes them in one transaction.
// A stored scenario with the same name is replaced.
func (s *SQLiteProvider) SaveScenarios(scenarios []ScenarioData) error {
	prepared := make([]ScenarioData, len(scenarios))
	copy(prepared, scenarios)
	for i := range prepared {
		if m := prepared[i].Measurement; m != nil {
			c := *m
			prepared[i].Measurement = &c
		}
	}
	if err := prepare(prepared); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return eris.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	for i := range prepared {
		if err := insertScenario(tx, &prepared[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "commit scenarios")
	}
	return nil
}

// DeleteScenario removes the scenario called name
func (s *SQLiteProvider) DeleteScenario(name string) error {
	res, err := s.db.Exec("DELETE FROM scenarios WHERE name = ?", name)
	if err != nil {
		return eris.Wrapf(err, "delete scenario %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrScenarioNotFound, "scenario %q", name)
	}
	return nil
}

// IsReadOnly returns false; the store accepts writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScenario(r rowScanner) (scenarioRow, error) {
	var row scenarioRow
	var seed int64
	d := &row.data

	err := r.Scan(
		&row.id, &d.Name,
		&d.Physics.ZInf, &d.Physics.TG0, &d.Physics.Atg, &d.Physics.A,
		&d.Sigma, &d.N, &seed, &d.PeTop, &d.Method,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return row, err
	}
	if err != nil {
		return row, eris.Wrap(err, "scan scenario row")
	}
	d.Seed = uint64(seed)
	return row, nil
}

func (s *SQLiteProvider) loadChildren(id int64, d *ScenarioData) error {
	if err := s.loadSegments(id, d); err != nil {
		return err
	}
	if err := s.loadGuesses(id, d); err != nil {
		return err
	}
	if err := s.loadDetection(id, d); err != nil {
		return err
	}
	if err := s.loadSolver(id, d); err != nil {
		return err
	}
	return s.loadMeasurement(id, d)
}

func (s *SQLiteProvider) loadSegments(id int64, d *ScenarioData) error {
	rows, err := s.db.Query(`
		SELECT left_depth, right_depth, pe
		FROM scenario_segments
		WHERE scenario_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return eris.Wrapf(err, "query segments of %q", d.Name)
	}
	defer rows.Close()

	for rows.Next() {
		var left, right float64
		var pe sql.NullFloat64
		if err := rows.Scan(&left, &right, &pe); err != nil {
			return eris.Wrap(err, "scan segment row")
		}
		d.Boundaries.Left = append(d.Boundaries.Left, left)
		d.Boundaries.Right = append(d.Boundaries.Right, right)

		// Convert NULL inflow to a missing truth
		if pe.Valid {
			d.Pe = append(d.Pe, pe.Float64)
		}
	}
	return rows.Err()
}

func (s *SQLiteProvider) loadGuesses(id int64, d *ScenarioData) error {
	rows, err := s.db.Query(`
		SELECT pe FROM scenario_guesses
		WHERE scenario_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return eris.Wrapf(err, "query initial guesses of %q", d.Name)
	}
	defer rows.Close()

	for rows.Next() {
		var pe float64
		if err := rows.Scan(&pe); err != nil {
			return eris.Wrap(err, "scan guess row")
		}
		d.Initial = append(d.Initial, pe)
	}
	return rows.Err()
}

func (s *SQLiteProvider) loadDetection(id int64, d *ScenarioData) error {
	var table sql.NullString
	err := s.db.QueryRow(`
		SELECT merge_gap, min_length, window_size, min_slope, predictor_table
		FROM scenario_detection
		WHERE scenario_id = ?
	`, id).Scan(&d.Detection.MergeGap, &d.Detection.MinLength, &d.Detection.WindowSize, &d.Detection.MinSlope, &table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "query detection settings of %q", d.Name)
	}
	if table.Valid {
		d.Detection.PredictorTable = table.String
	}
	return nil
}

func (s *SQLiteProvider) loadSolver(id int64, d *ScenarioData) error {
	err := s.db.QueryRow(`
		SELECT max_iterations, ftol, xtol
		FROM scenario_solver
		WHERE scenario_id = ?
	`, id).Scan(&d.Solver.MaxIterations, &d.Solver.FTol, &d.Solver.XTol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "query solver settings of %q", d.Name)
	}
	return nil
}

func (s *SQLiteProvider) loadMeasurement(id int64, d *ScenarioData) error {
	var m series.ThermogramSpec
	var sheet sql.NullString
	err := s.db.QueryRow(`
		SELECT path, sheet, depth_column, temp_column, radius, t_ref, t_top, max_rows
		FROM scenario_measurements
		WHERE scenario_id = ?
	`, id).Scan(&m.Path, &sheet, &m.DepthColumn, &m.TempColumn, &m.Radius, &m.TRef, &m.TTop, &m.MaxRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "query measurement of %q", d.Name)
	}
	if sheet.Valid {
		m.Sheet = sheet.String
	}
	d.Measurement = &m
	return nil
}

func insertScenario(tx *sql.Tx, d *ScenarioData) error {
	if _, err := tx.Exec("DELETE FROM scenarios WHERE name = ?", d.Name); err != nil {
		return eris.Wrapf(err, "replace scenario %q", d.Name)
	}

	res, err := tx.Exec(`
		INSERT INTO scenarios (name, z_inf, tg0, atg, a, sigma, n, seed, pe_top, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.Name,
		d.Physics.ZInf, d.Physics.TG0, d.Physics.Atg, d.Physics.A,
		d.Sigma, d.N, int64(d.Seed), d.PeTop, d.Method,
	)
	if err != nil {
		return eris.Wrapf(err, "insert scenario %q", d.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "scenario id")
	}

	if err := insertSegments(tx, id, d.Boundaries, d.Pe); err != nil {
		return eris.Wrapf(err, "scenario %q", d.Name)
	}

	for i, pe := range d.Initial {
		if _, err := tx.Exec(
			"INSERT INTO scenario_guesses (scenario_id, position, pe) VALUES (?, ?, ?)",
			id, i, pe,
		); err != nil {
			return eris.Wrapf(err, "insert initial guess %d of %q", i, d.Name)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO scenario_detection (scenario_id, merge_gap, min_length, window_size, min_slope, predictor_table)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		id, d.Detection.MergeGap, d.Detection.MinLength, d.Detection.WindowSize, d.Detection.MinSlope,
		nullString(d.Detection.PredictorTable),
	); err != nil {
		return eris.Wrapf(err, "insert detection settings of %q", d.Name)
	}

	if _, err := tx.Exec(`
		INSERT INTO scenario_solver (scenario_id, max_iterations, ftol, xtol)
		VALUES (?, ?, ?, ?)
	`, id, d.Solver.MaxIterations, d.Solver.FTol, d.Solver.XTol); err != nil {
		return eris.Wrapf(err, "insert solver settings of %q", d.Name)
	}

	if m := d.Measurement; m != nil {
		if _, err := tx.Exec(`
			INSERT INTO scenario_measurements (scenario_id, path, sheet, depth_column, temp_column, radius, t_ref, t_top, max_rows)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, m.Path, nullString(m.Sheet), m.DepthColumn, m.TempColumn,
			m.Radius, m.TRef, m.TTop, m.MaxRows,
		); err != nil {
			return eris.Wrapf(err, "insert measurement of %q", d.Name)
		}
	}
	return nil
}

func insertSegments(tx *sql.Tx, id int64, b thermal.Boundaries, pe []float64) error {
	for i := range b.Left {
		var v sql.NullFloat64
		if i < len(pe) {
			v = sql.NullFloat64{Float64: pe[i], Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT INTO scenario_segments (scenario_id, position, left_depth, right_depth, pe)
			VALUES (?, ?, ?, ?, ?)
		`, id, i, b.Left[i], b.Right[i], v); err != nil {
			return eris.Wrapf(err, "insert segment %d", i)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
