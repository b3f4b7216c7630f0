// Package migrate applies versioned SQL migrations inside transactions.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Latest asks MigrateTo for the newest available version.
const Latest = -1

var (
	// ErrMissingSQL is returned when a step has no SQL for its direction.
	ErrMissingSQL = errors.New("migration has no SQL for this direction")

	// ErrBadTarget is returned for a version outside the known range.
	ErrBadTarget = errors.New("invalid migration target")
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB represents either a database connection or transaction
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// MigrationProvider defines how migrations are loaded and managed.
// GetMigrations returns them ordered by version.
type MigrationProvider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Migrator handles the execution of migrations
type Migrator struct {
	db       *sql.DB
	provider MigrationProvider
	logger   *zap.SugaredLogger
}

// NewMigrator creates a new migrator instance. A nil logger discards the
// progress messages.
func NewMigrator(db *sql.DB, provider MigrationProvider, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{
		db:       db,
		provider: provider,
		logger:   logger,
	}
}

// Status summarises the migration state of a database.
type Status struct {
	Current int         `json:"current"`
	Latest  int         `json:"latest"`
	Pending []Migration `json:"pending,omitempty"`
}

// step is one migration run in one direction. after is the version the
// database reports once the step commits.
type step struct {
	migration Migration
	up        bool
	after     int
}

func (s step) direction() string {
	if s.up {
		return "up"
	}
	return "down"
}

func (s step) sql() string {
	if s.up {
		return s.migration.Up
	}
	return s.migration.Down
}

// plan lists the steps leading from current to target. Upgrades run in
// ascending order, rollbacks in descending order; every rollback step leaves
// the version just below the migration it reverts.
func plan(migrations []Migration, current, target int) []step {
	var steps []step
	if target >= current {
		for _, m := range migrations {
			if m.Version > current && m.Version <= target {
				steps = append(steps, step{migration: m, up: true, after: m.Version})
			}
		}
		return steps
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.Version > target && m.Version <= current {
			after := target
			if i > 0 && migrations[i-1].Version > target {
				after = migrations[i-1].Version
			}
			steps = append(steps, step{migration: m, up: false, after: after})
		}
	}
	return steps
}

// state ensures the version table exists and returns the applied version
// together with every known migration.
func (m *Migrator) state() (int, []Migration, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, nil, fmt.Errorf("failed to create migration table: %w", err)
	}
	current, err := m.provider.GetCurrentVersion(m.db)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get current version: %w", err)
	}
	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get migrations: %w", err)
	}
	return current, migrations, nil
}

// Status reports the applied version, the newest available one and the
// migrations still to run.
func (m *Migrator) Status() (Status, error) {
	current, migrations, err := m.state()
	if err != nil {
		return Status{}, err
	}

	st := Status{Current: current, Latest: current}
	for _, s := range plan(migrations, current, latest(migrations)) {
		st.Pending = append(st.Pending, s.migration)
		st.Latest = s.migration.Version
	}
	return st, nil
}

// MigrateUp runs all pending migrations up to the latest version
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(Latest)
}

// MigrateDown reverts the database to targetVersion, which must be below
// the applied version.
func (m *Migrator) MigrateDown(targetVersion int) error {
	current, migrations, err := m.state()
	if err != nil {
		return err
	}
	if targetVersion >= current {
		return fmt.Errorf("%w: down target %d must be less than current version %d", ErrBadTarget, targetVersion, current)
	}
	return m.run(migrations, current, targetVersion)
}

// MigrateTo moves the database to targetVersion in whichever direction is
// needed. Latest selects the newest migration.
func (m *Migrator) MigrateTo(targetVersion int) error {
	current, migrations, err := m.state()
	if err != nil {
		return err
	}
	if targetVersion == Latest {
		targetVersion = latest(migrations)
	}
	return m.run(migrations, current, targetVersion)
}

func (m *Migrator) run(migrations []Migration, current, target int) error {
	if target < 0 || target > latest(migrations) {
		return fmt.Errorf("%w: version %d, known versions end at %d", ErrBadTarget, target, latest(migrations))
	}

	steps := plan(migrations, current, target)
	if len(steps) == 0 {
		m.logger.Debugf("schema already at version %d", current)
		return nil
	}
	for _, s := range steps {
		if err := m.apply(s); err != nil {
			return fmt.Errorf("migration %d %s: %w", s.migration.Version, s.direction(), err)
		}
	}
	m.logger.Infof("schema moved from version %d to %d", current, target)
	return nil
}

// apply runs one step and records its version in the same transaction, so a
// failing statement leaves both the schema and the version untouched.
func (m *Migrator) apply(s step) error {
	stmt := s.sql()
	if stmt == "" {
		return ErrMissingSQL
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.provider.SetVersion(tx, s.after); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.Infof("applied migration %d (%s) %s, now at version %d", s.migration.Version, s.migration.Name, s.direction(), s.after)
	return nil
}

// GetCurrentVersion returns the current migration version
func (m *Migrator) GetCurrentVersion() (int, error) {
	current, _, err := m.state()
	return current, err
}

func latest(migrations []Migration) int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
