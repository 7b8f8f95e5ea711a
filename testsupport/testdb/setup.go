package testdb

import (
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"

	tcpg "github.com/mpapenbr/racedash/testsupport/tcpostgres"
)

// InitTestDb returns a pool to an empty test database. The database given
// by TESTDB_URL is used if set, otherwise a container is started. The test
// is skipped if neither is available.
func InitTestDb(t *testing.T) *pgxpool.Pool {
	t.Helper()
	var (
		pool *pgxpool.Pool
		err  error
	)

	if os.Getenv("TESTDB_URL") != "" {
		pool, err = tcpg.SetupExternalTestDb()
	} else {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		pool, err = tcpg.SetupTestDb()
	}
	if err != nil {
		t.Fatalf("initTestDb: %v", err)
	}
	tcpg.ClearSessionTables(pool)
	t.Cleanup(pool.Close)
	return pool
}
