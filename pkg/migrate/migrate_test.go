package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"sql/001_create_runs.up.sql":    {Data: []byte("CREATE TABLE runs (id INTEGER PRIMARY KEY, name TEXT);")},
		"sql/001_create_runs.down.sql":  {Data: []byte("DROP TABLE runs;")},
		"sql/002_add_score.up.sql":      {Data: []byte("ALTER TABLE runs ADD COLUMN score REAL;")},
		"sql/002_add_score.down.sql":    {Data: []byte("ALTER TABLE runs DROP COLUMN score;")},
		"sql/003_create_notes.up.sql":   {Data: []byte("CREATE TABLE notes (body TEXT);")},
		"sql/003_create_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
		"sql/README.md":                 {Data: []byte("not a migration")},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFSProviderGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "sql", "").GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create runs", migrations[0].Name)
	assert.Contains(t, migrations[0].Up, "CREATE TABLE runs")
	assert.Contains(t, migrations[0].Down, "DROP TABLE runs")
	assert.Equal(t, 3, migrations[2].Version)
}

func TestMigrateUpStatusDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testFS(), "sql", "versions"), nil)

	st, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 3, st.Latest)
	assert.Len(t, st.Pending, 3)

	require.NoError(t, m.MigrateTo(2))
	v, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = db.Exec("INSERT INTO runs (name, score) VALUES ('a', 1.5)")
	require.NoError(t, err)

	require.NoError(t, m.MigrateUp())
	st, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Current)
	assert.Empty(t, st.Pending)

	require.NoError(t, m.MigrateDown(1))
	v, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = db.Exec("INSERT INTO notes (body) VALUES ('x')")
	assert.Error(t, err, "notes is dropped by the rollback")

	assert.ErrorIs(t, m.MigrateDown(1), ErrBadTarget, "target must be below the current version")
	assert.ErrorIs(t, m.MigrateTo(9), ErrBadTarget)

	require.NoError(t, m.MigrateDown(0))
	v, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestMigrationWithoutDownFails(t *testing.T) {
	fsys := fstest.MapFS{
		"001_only_up.up.sql": {Data: []byte("CREATE TABLE t (x INTEGER);")},
	}
	m := NewMigrator(openDB(t), NewFSProvider(fsys, ".", ""), nil)

	require.NoError(t, m.MigrateUp())
	assert.ErrorIs(t, m.MigrateDown(0), ErrMissingSQL)

	v, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFailedMigrationRollsBack(t *testing.T) {
	fsys := fstest.MapFS{
		"001_good.up.sql": {Data: []byte("CREATE TABLE a (x INTEGER);")},
		"002_bad.up.sql":  {Data: []byte("CREATE TABLE b (x INTEGER); INSERT INTO missing VALUES (1);")},
	}
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(fsys, ".", ""), nil)

	assert.Error(t, m.MigrateUp())
	v, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = db.Exec("INSERT INTO b VALUES (1)")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	migrations := []Migration{{Version: 1}, {Version: 3}, {Version: 7}}

	type planned struct {
		version int
		up      bool
		after   int
	}
	tests := []struct {
		name            string
		current, target int
		expected        []planned
	}{
		{"nothing to do", 3, 3, nil},
		{"up from empty", 0, 7, []planned{{1, true, 1}, {3, true, 3}, {7, true, 7}}},
		{"partial up", 1, 3, []planned{{3, true, 3}}},
		{"down across gaps", 7, 1, []planned{{7, false, 3}, {3, false, 1}}},
		{"down to empty", 3, 0, []planned{{3, false, 1}, {1, false, 0}}},
		{"down to a version between migrations", 7, 5, []planned{{7, false, 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []planned
			for _, s := range plan(migrations, tt.current, tt.target) {
				got = append(got, planned{s.migration.Version, s.up, s.after})
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}
