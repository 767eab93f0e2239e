package database

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	require.NoError(t, err)
	db1.Close()

	db2, err := Open(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	version, err := getSchemaVersion(db2.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
}

func TestMigrateFromVersionOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")

	raw, err := sqlx.Open("sqlite", dsn(dbPath))
	require.NoError(t, err)
	tx, err := raw.Begin()
	require.NoError(t, err)
	require.NoError(t, migrations[0].Up(tx))
	require.NoError(t, tx.Commit())
	_, err = raw.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	raw.Close()

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	version, err := getSchemaVersion(db.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)

	var n int
	require.NoError(t, db.conn.Get(&n, "SELECT COUNT(*) FROM pragma_table_info('figures') WHERE name = 'summary'"))
	assert.Equal(t, 1, n)
}

func TestGetSchemaVersionNewDB(t *testing.T) {
	conn, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer conn.Close()

	version, err := getSchemaVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	db := openTestDB(t)
	db.conn.SetMaxOpenConns(3)

	for i := 0; i < 3; i++ {
		var on int
		require.NoError(t, db.conn.Get(&on, "PRAGMA foreign_keys"))
		assert.Equal(t, 1, on)
	}
}
