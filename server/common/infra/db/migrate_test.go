package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", pgx5URL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/db", pgx5URL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://already", pgx5URL("pgx5://already"))
}

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileshare.db")

	require.NoError(t, MigrateSQLite(path))
	require.NoError(t, MigrateSQLite(path))

	conn, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer conn.Close()

	var name string
	err = conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='files'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "files", name)
}
