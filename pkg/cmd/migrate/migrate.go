package migrate

import (
	"context"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/cmd/cmdutil"
	"github.com/mpapenbr/racedash/pkg/config"
	dbmigrate "github.com/mpapenbr/racedash/pkg/db/migrate"
	"github.com/mpapenbr/racedash/pkg/store/sqlite"
)

// ErrSourceURLNeedsDB is returned when migration files are given for the
// sqlite cache, which always uses the embedded migrations.
var ErrSourceURLNeedsDB = errors.New("--migration-source-url requires --db")

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration of the session cache",
		Long: `Applies the schema of the session cache. With --db the postgres database is
migrated, otherwise the sqlite cache in --cache-dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cmdutil.SetupLogger(); err != nil {
				return err
			}
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to postgres migration files (default: embedded migrations)")

	return cmd
}

func startMigration(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if config.DB == "" {
		if config.MigrationSourceURL != "" {
			return ErrSourceURLNeedsDB
		}
		log.Info("Migrating sqlite cache", log.String("cacheDir", config.CacheDir))
		s, err := sqlite.Open(config.CacheDir, config.Source)
		if err != nil {
			return err
		}
		return s.Close()
	}

	if err := cmdutil.WaitForDB(ctx); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}
	if config.MigrationSourceURL == "" {
		log.Info("Using embedded migrations")
		return dbmigrate.MigrateDb(config.DB)
	}

	log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
	m, err := migrate.New(config.MigrationSourceURL, dbmigrate.PgxURL(config.DB))
	if err != nil {
		log.Error("Could not create migration", log.ErrorField(err))
		return err
	}
	defer m.Close()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No Migration required")
		return nil
	}
	return err
}
