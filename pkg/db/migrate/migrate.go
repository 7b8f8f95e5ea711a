package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mpapenbr/racedash/log"
)

//go:embed migrations
var migrations embed.FS

const (
	postgresMigrations = "migrations/postgres"
	sqliteMigrations   = "migrations/sqlite"
)

// MigrateDb applies the embedded postgres migrations.
func MigrateDb(dbURI string) error {
	source, err := iofs.New(migrations, postgresMigrations)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, PgxURL(dbURI))
	if err != nil {
		return err
	}
	defer m.Close()
	m.Log = &migrateLogger{l: log.Default().Named("migrate")}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// MigrateSqlite applies the embedded sqlite migrations to db.
// db stays open, closing the migrate instance would close it.
func MigrateSqlite(db *sql.DB) error {
	source, err := iofs.New(migrations, sqliteMigrations)
	if err != nil {
		return err
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{l: log.Default().Named("migrate")}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// PgxURL rewrites a postgres url to the scheme of the golang-migrate pgx driver.
func PgxURL(dbURI string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURI, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURI, prefix)
		}
	}
	return dbURI
}

type migrateLogger struct {
	l *log.Logger
}

func (m *migrateLogger) Printf(format string, v ...interface{}) {
	m.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m *migrateLogger) Verbose() bool {
	return m.l.Enabled(log.DebugLevel)
}
