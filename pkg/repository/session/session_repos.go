//nolint:whitespace //can't make both the linter and editor happy :(
package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/repository"
	"github.com/mpapenbr/racedash/pkg/store"
)

var lapColumns = []string{
	"year", "event", "session_type", "driver", "lap_number", "lap_time_ms", "position", "compound",
}

// Create registers a session for source. An entry of the same source is kept,
// an entry of another source is removed together with its laps and telemetry.
func Create(ctx context.Context, conn repository.Querier, key model.SessionKey, source string) error {
	if _, err := conn.Exec(ctx,
		`delete from cached_session
		 where year=$1 and event=$2 and session_type=$3 and source<>$4`,
		key.Year, key.Event, string(key.Type), source); err != nil {
		return err
	}
	_, err := conn.Exec(ctx,
		`insert into cached_session (year, event, session_type, source) values ($1,$2,$3,$4)
		 on conflict do nothing`,
		key.Year, key.Event, string(key.Type), source)
	return err
}

// Exists reports whether the session is stored for source.
func Exists(ctx context.Context, conn repository.Querier, key model.SessionKey, source string) (bool, error) {
	var found bool
	err := conn.QueryRow(ctx,
		`select exists(select 1 from cached_session
		 where year=$1 and event=$2 and session_type=$3 and source=$4)`,
		key.Year, key.Event, string(key.Type), source).Scan(&found)
	return found, err
}

// ReplaceLaps stores the lap table of a session, previous laps are removed.
func ReplaceLaps(ctx context.Context, conn repository.Querier, key model.SessionKey, laps []model.Lap) error {
	if _, err := conn.Exec(ctx,
		"delete from cached_lap where year=$1 and event=$2 and session_type=$3",
		key.Year, key.Event, string(key.Type)); err != nil {
		return err
	}
	rows := make([][]any, 0, len(laps))
	for _, l := range laps {
		r := store.ToLapRow(l)
		rows = append(rows, []any{
			key.Year, key.Event, string(key.Type),
			r.Driver, r.LapNumber, r.LapTimeMs, r.Position, r.Compound,
		})
	}
	_, err := conn.CopyFrom(ctx, pgx.Identifier{"cached_lap"}, lapColumns, pgx.CopyFromRows(rows))
	return err
}

func LoadLaps(ctx context.Context, conn repository.Querier, key model.SessionKey) ([]model.Lap, error) {
	rows, err := conn.Query(ctx,
		`select driver, lap_number, lap_time_ms, position, compound from cached_lap
		 where year=$1 and event=$2 and session_type=$3 order by driver, lap_number`,
		key.Year, key.Event, string(key.Type))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []model.Lap{}
	for rows.Next() {
		var r store.LapRow
		if err := rows.Scan(&r.Driver, &r.LapNumber, &r.LapTimeMs, &r.Position, &r.Compound); err != nil {
			return nil, err
		}
		ret = append(ret, r.Lap())
	}
	return ret, rows.Err()
}

func UpsertTelemetry(ctx context.Context, conn repository.Querier, key model.SessionKey, t *model.Telemetry) error {
	data, err := store.EncodeSamples(t.Samples)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		`insert into cached_telemetry (year, event, session_type, driver, lap_number, samples)
		 values ($1,$2,$3,$4,$5,$6)
		 on conflict (year, event, session_type, driver, lap_number)
		 do update set samples=excluded.samples`,
		key.Year, key.Event, string(key.Type), t.Driver, t.LapNumber, data)
	return err
}

// LoadTelemetry returns store.ErrNotFound if the lap is not stored for source.
func LoadTelemetry(
	ctx context.Context,
	conn repository.Querier,
	key model.SessionKey,
	source string,
	driver string,
	lap int,
) (*model.Telemetry, error) {
	var data []byte
	err := conn.QueryRow(ctx,
		`select t.samples from cached_telemetry t
		 join cached_session s using (year, event, session_type)
		 where t.year=$1 and t.event=$2 and t.session_type=$3 and s.source=$4
		 and t.driver=$5 and t.lap_number=$6`,
		key.Year, key.Event, string(key.Type), source, driver, lap).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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

// DeleteByKey deletes a session including its laps and telemetry,
// returns number of sessions deleted.
func DeleteByKey(ctx context.Context, conn repository.Querier, key model.SessionKey) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from cached_session where year=$1 and event=$2 and session_type=$3",
		key.Year, key.Event, string(key.Type))
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func DeleteAll(ctx context.Context, conn repository.Querier) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from cached_session")
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
