package config

import (
	"database/sql"
	"embed"

	"go.uber.org/zap"

	"github.com/MishaelXV/Diplom-project/pkg/migrate"
)

// Migrations holds the versioned schema of the scenario store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationTable records the applied schema version.
const MigrationTable = "schema_migrations"

// NewMigrator returns a migrator for the scenario store schema.
func NewMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	return migrate.NewMigrator(db, migrate.NewFSProvider(Migrations, "migrations", MigrationTable), logger)
}

// EnsureSchema brings db up to the latest schema version.
func EnsureSchema(db *sql.DB, logger *zap.SugaredLogger) error {
	return NewMigrator(db, logger).MigrateUp()
}
