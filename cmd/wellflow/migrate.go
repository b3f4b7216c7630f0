package main

import (
	"database/sql"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MishaelXV/Diplom-project/pkg/config"
	"github.com/MishaelXV/Diplom-project/pkg/migrate"
)

var migrateDB string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the schema of a SQLite scenario store",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrator) error {
			return m.MigrateUp()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Roll the schema back to version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Wrapf(err, "invalid target version %q", args[0])
		}
		return withMigrator(func(m *migrate.Migrator) error {
			return m.MigrateDown(target)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrator) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			return writeResult(st, migrationTable(st))
		})
	},
}

// withMigrator opens the store named by --db, or the scenario source, and
// runs fn against it.
func withMigrator(fn func(*migrate.Migrator) error) error {
	path := migrateDB
	if path == "" {
		path = cfg.Scenarios
	}
	if path == "" || !isSQLitePath(path) {
		return eris.Errorf("migrate needs a SQLite store, got %q", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return eris.Wrapf(err, "ping %s", path)
	}

	if err := fn(config.NewMigrator(db, logger)); err != nil {
		return eris.Wrap(err, "migration command failed")
	}
	return nil
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDB, "db", "", "SQLite store (defaults to --scenarios)")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
