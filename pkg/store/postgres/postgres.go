// Package postgres stores cached sessions in a PostgreSQL database.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/racedash/pkg/model"
	sessionrepo "github.com/mpapenbr/racedash/pkg/repository/session"
	"github.com/mpapenbr/racedash/pkg/store"
)

type Store struct {
	pool   *pgxpool.Pool
	source string
}

var _ store.Store = (*Store)(nil)

// New uses an initialized and migrated pool. source is recorded with every
// stored session.
func New(pool *pgxpool.Pool, source string) *Store {
	return &Store{pool: pool, source: source}
}

func (s *Store) LoadLaps(ctx context.Context, key model.SessionKey) ([]model.Lap, error) {
	found, err := sessionrepo.Exists(ctx, s.pool, key, s.source)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return sessionrepo.LoadLaps(ctx, s.pool, key)
}

func (s *Store) SaveLaps(ctx context.Context, key model.SessionKey, laps []model.Lap) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := sessionrepo.Create(ctx, tx, key, s.source); err != nil {
			return err
		}
		return sessionrepo.ReplaceLaps(ctx, tx, key, laps)
	})
}

func (s *Store) LoadTelemetry(
	ctx context.Context, key model.SessionKey, driver string, lap int,
) (*model.Telemetry, error) {
	return sessionrepo.LoadTelemetry(ctx, s.pool, key, s.source, driver, lap)
}

func (s *Store) SaveTelemetry(ctx context.Context, key model.SessionKey, t *model.Telemetry) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := sessionrepo.Create(ctx, tx, key, s.source); err != nil {
			return err
		}
		return sessionrepo.UpsertTelemetry(ctx, tx, key, t)
	})
}

func (s *Store) Clear(ctx context.Context, key *model.SessionKey) (int, error) {
	if key == nil {
		return sessionrepo.DeleteAll(ctx, s.pool)
	}
	return sessionrepo.DeleteByKey(ctx, s.pool, *key)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
