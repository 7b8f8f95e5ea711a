package migrate

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestPgxURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgresql://u:p@db:5432/racedash", "pgx5://u:p@db:5432/racedash"},
		{"postgres://u:p@db/racedash?sslmode=disable", "pgx5://u:p@db/racedash?sslmode=disable"},
		{"pgx5://db/x", "pgx5://db/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PgxURL(tt.in))
	}
}

func TestMigrateSqlite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	require.NoError(t, MigrateSqlite(db))
	// second run is a no-op
	require.NoError(t, MigrateSqlite(db))

	var count int
	err = db.QueryRow(
		"SELECT count(*) FROM sqlite_master WHERE type='table' AND name LIKE 'cached_%'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
