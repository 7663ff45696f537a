package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestNewAppliesEmbeddedMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tms.db")

	db, err := New(path, Migrations())
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	require.Equal(t, 1, n)
	require.NoError(t, db.Close())

	// ikinci açılışta migration tekrar çalışmamalı
	db, err = New(path, Migrations())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	require.Equal(t, 1, n)

	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('users','tasks')").Scan(&n))
	require.Equal(t, 2, n)
}

func TestNewFailsOnBrokenMigration(t *testing.T) {
	fsys := fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREATE TABLE ok (id TEXT); THIS IS NOT SQL;")},
	}

	_, err := New(filepath.Join(t.TempDir(), "bad.db"), fsys)
	require.ErrorContains(t, err, "001_bad.sql (statement 2)")
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("INSERT INTO t VALUES ('a;b'); INSERT INTO t VALUES ('it''s');\n")
	require.Equal(t, []string{
		"INSERT INTO t VALUES ('a;b')",
		"INSERT INTO t VALUES ('it''s')",
	}, got)
}

func TestDatabaseFromURI(t *testing.T) {
	require.Equal(t, "tasks", databaseFromURI("mongodb://localhost:27017/tasks?retryWrites=true"))
	require.Equal(t, "tms", databaseFromURI("mongodb://localhost:27017"))
}
