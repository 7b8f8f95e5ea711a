//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/racedash/pkg/db/migrate"
	database "github.com/mpapenbr/racedash/pkg/db/postgres"
)

// SetupTestDb starts (or reuses) a postgres container and returns a pool
// for the migrated racedash test database.
func SetupTestDb() (*pgxpool.Pool, error) {
	ctx := context.Background()
	dbUrl, err := StartPostgres(ctx, WithName("racedash-test"))
	if err != nil {
		return nil, err
	}
	return setup(ctx, dbUrl)
}

// SetupExternalTestDb uses the database given by TESTDB_URL.
func SetupExternalTestDb() (*pgxpool.Pool, error) {
	return setup(context.Background(), os.Getenv("TESTDB_URL"))
}

func setup(ctx context.Context, dbUrl string) (*pgxpool.Pool, error) {
	if err := migrate.MigrateDb(dbUrl); err != nil {
		return nil, err
	}
	return database.InitWithUrl(ctx, dbUrl)
}

// ClearSessionTables removes all cached sessions.
func ClearSessionTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from cached_telemetry")
	pool.Exec(context.Background(), "delete from cached_lap")
	pool.Exec(context.Background(), "delete from cached_session")
}
