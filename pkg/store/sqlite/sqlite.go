// Package sqlite stores cached sessions in a sqlite file inside the cache
// directory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/db/migrate"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/store"
)

const DBFile = "racedash.db"

type Store struct {
	db     *sql.DB
	source string
	l      *log.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (and creates) <cacheDir>/racedash.db. A missing cache
// directory is created.
func Open(cacheDir, source string) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(cacheDir, DBFile)
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if err := migrate.MigrateSqlite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	l := log.Default().Named("store.sqlite")
	l.Debug("cache database ready", log.String("path", path))
	return &Store{db: db, source: source, l: l}, nil
}

func (s *Store) exists(ctx context.Context, key model.SessionKey) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM cached_session
		 WHERE year=? AND event=? AND session_type=? AND source=?`,
		key.Year, key.Event, string(key.Type), s.source).Scan(&n)
	return n > 0, err
}

func (s *Store) LoadLaps(ctx context.Context, key model.SessionKey) ([]model.Lap, error) {
	found, err := s.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT driver, lap_number, lap_time_ms, position, compound FROM cached_lap
		 WHERE year=? AND event=? AND session_type=? ORDER BY driver, lap_number`,
		key.Year, key.Event, string(key.Type))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []model.Lap{}
	for rows.Next() {
		var (
			r        store.LapRow
			lapTime  sql.NullInt64
			position sql.NullInt64
		)
		if err := rows.Scan(&r.Driver, &r.LapNumber, &lapTime, &position, &r.Compound); err != nil {
			return nil, err
		}
		if lapTime.Valid {
			r.LapTimeMs = &lapTime.Int64
		}
		if position.Valid {
			p := int(position.Int64)
			r.Position = &p
		}
		ret = append(ret, r.Lap())
	}
	return ret, rows.Err()
}

func (s *Store) SaveLaps(ctx context.Context, key model.SessionKey, laps []model.Lap) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.createSession(ctx, tx, key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cached_lap WHERE year=? AND event=? AND session_type=?`,
			key.Year, key.Event, string(key.Type)); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cached_lap (year, event, session_type, driver, lap_number,
			 lap_time_ms, position, compound) VALUES (?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, l := range laps {
			r := store.ToLapRow(l)
			if _, err := stmt.ExecContext(ctx, key.Year, key.Event, string(key.Type),
				r.Driver, r.LapNumber, r.LapTimeMs, r.Position, r.Compound); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadTelemetry(
	ctx context.Context, key model.SessionKey, driver string, lap int,
) (*model.Telemetry, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT t.samples FROM cached_telemetry t
		 JOIN cached_session s USING (year, event, session_type)
		 WHERE t.year=? AND t.event=? AND t.session_type=? AND s.source=?
		 AND t.driver=? AND t.lap_number=?`,
		key.Year, key.Event, string(key.Type), s.source, driver, lap).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	samples, err := store.DecodeSamples(data)
	if err != nil {
		return nil, err
	}
	return &model.Telemetry{Driver: driver, LapNumber: lap, Samples: samples}, nil
}

func (s *Store) SaveTelemetry(ctx context.Context, key model.SessionKey, t *model.Telemetry) error {
	data, err := store.EncodeSamples(t.Samples)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.createSession(ctx, tx, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cached_telemetry (year, event, session_type, driver, lap_number, samples)
			 VALUES (?,?,?,?,?,?)
			 ON CONFLICT (year, event, session_type, driver, lap_number)
			 DO UPDATE SET samples=excluded.samples`,
			key.Year, key.Event, string(key.Type), t.Driver, t.LapNumber, string(data))
		return err
	})
}

func (s *Store) Clear(ctx context.Context, key *model.SessionKey) (int, error) {
	var (
		res sql.Result
		err error
	)
	if key == nil {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cached_session`)
	} else {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM cached_session WHERE year=? AND event=? AND session_type=?`,
			key.Year, key.Event, string(key.Type))
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// createSession replaces a session stored by another source.
func (s *Store) createSession(ctx context.Context, tx *sql.Tx, key model.SessionKey) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM cached_session WHERE year=? AND event=? AND session_type=? AND source<>?`,
		key.Year, key.Event, string(key.Type), s.source)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.l.Info("replacing session cached from another source",
			log.String("session", key.String()), log.String("source", s.source))
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cached_session (year, event, session_type, source) VALUES (?,?,?,?)
		 ON CONFLICT DO NOTHING`,
		key.Year, key.Event, string(key.Type), s.source)
	return err
}

func (s *Store) inTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.l.Warn("rollback failed", log.ErrorField(rbErr))
		}
		return err
	}
	return tx.Commit()
}
