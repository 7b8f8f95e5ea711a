//nolint:dupl,funlen,errcheck //ok for this test code
package session

import (
	"context"
	"errors"
	"log"
	"math"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/store"
	"github.com/mpapenbr/racedash/testsupport/fixtures"
	"github.com/mpapenbr/racedash/testsupport/testdb"
)

var otherKey = model.SessionKey{Year: 2021, Event: "Saudi Arabia", Type: model.Race}

func createSampleEntry(db *pgxpool.Pool, key model.SessionKey) {
	err := pgx.BeginFunc(context.Background(), db, func(tx pgx.Tx) error {
		if err := Create(context.Background(), tx, key, "test"); err != nil {
			return err
		}
		return ReplaceLaps(context.Background(), tx, key, fixtures.ScenarioLaps())
	})
	if err != nil {
		log.Fatalf("createSampleEntry: %v\n", err)
	}
}

func TestCreate(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)
	tests := []struct {
		name string
		key  model.SessionKey
	}{
		{name: "new entry", key: otherKey},
		{name: "duplicate is kept", key: fixtures.AbuDhabi2021},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Create(context.Background(), pool, tt.key, "test"); err != nil {
				t.Errorf("Create error = %v", err)
			}
			found, err := Exists(context.Background(), pool, tt.key, "test")
			if err != nil || !found {
				t.Errorf("Exists() = %v, %v, want true", found, err)
			}
		})
	}
	laps, err := LoadLaps(context.Background(), pool, fixtures.AbuDhabi2021)
	if err != nil {
		t.Fatalf("LoadLaps error = %v", err)
	}
	if len(laps) != 6 {
		t.Errorf("duplicate create changed laps, got %d", len(laps))
	}
}

func TestCreate_otherSource(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	createSampleEntry(pool, fixtures.AbuDhabi2021)
	UpsertTelemetry(ctx, pool, fixtures.AbuDhabi2021, fixtures.Telemetry("VER", 1, 3))

	if err := Create(ctx, pool, fixtures.AbuDhabi2021, "openf1"); err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if found, _ := Exists(ctx, pool, fixtures.AbuDhabi2021, "test"); found {
		t.Errorf("session of previous source still exists")
	}
	if found, _ := Exists(ctx, pool, fixtures.AbuDhabi2021, "openf1"); !found {
		t.Errorf("session of new source not created")
	}
	laps, _ := LoadLaps(ctx, pool, fixtures.AbuDhabi2021)
	if len(laps) != 0 {
		t.Errorf("laps of previous source remain: %d", len(laps))
	}
	if _, err := LoadTelemetry(ctx, pool, fixtures.AbuDhabi2021, "openf1", "VER", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("telemetry of previous source remains: %v", err)
	}
}

func TestExists(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)
	tests := []struct {
		name   string
		key    model.SessionKey
		source string
		want   bool
	}{
		{name: "existing", key: fixtures.AbuDhabi2021, source: "test", want: true},
		{name: "other event", key: otherKey, source: "test", want: false},
		{name: "other source", key: fixtures.AbuDhabi2021, source: "openf1", want: false},
		{
			name:   "other session type",
			key:    model.SessionKey{Year: 2021, Event: "Abu Dhabi", Type: model.Qualifying},
			source: "test",
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Exists(context.Background(), pool, tt.key, tt.source)
			if err != nil {
				t.Fatalf("Exists error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadLaps(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)

	got, err := LoadLaps(context.Background(), pool, fixtures.AbuDhabi2021)
	if err != nil {
		t.Fatalf("LoadLaps error = %v", err)
	}
	want := fixtures.ScenarioLaps()
	if len(got) != len(want) {
		t.Fatalf("LoadLaps() returned %d laps, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Driver != want[i].Driver || got[i].LapNumber != want[i].LapNumber {
			t.Errorf("lap %d = %s/%d, want %s/%d", i,
				got[i].Driver, got[i].LapNumber, want[i].Driver, want[i].LapNumber)
		}
		if got[i].LapTime.IsValue() != want[i].LapTime.IsValue() {
			t.Errorf("lap %d: null lap time not kept", i)
		}
		gs, _ := got[i].Seconds()
		ws, _ := want[i].Seconds()
		if math.Abs(gs-ws) > 0.001 {
			t.Errorf("lap %d: lap time = %v, want %v", i, gs, ws)
		}
		if got[i].Position.IsValue() != want[i].Position.IsValue() {
			t.Errorf("lap %d: null position not kept", i)
		}
	}

	got, err = LoadLaps(context.Background(), pool, otherKey)
	if err != nil {
		t.Fatalf("LoadLaps error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoadLaps() of unknown session = %d laps, want 0", len(got))
	}
}

func TestReplaceLaps(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)

	err := pool.AcquireFunc(context.Background(), func(c *pgxpool.Conn) error {
		return ReplaceLaps(context.Background(), c.Conn(), fixtures.AbuDhabi2021,
			fixtures.RaceLaps(10, "VER"))
	})
	if err != nil {
		t.Fatalf("ReplaceLaps error = %v", err)
	}
	got, _ := LoadLaps(context.Background(), pool, fixtures.AbuDhabi2021)
	if len(got) != 10 {
		t.Errorf("LoadLaps() returned %d laps, want 10", len(got))
	}
	for _, l := range got {
		if l.Driver != "VER" {
			t.Errorf("previous lap of %s was not removed", l.Driver)
		}
	}
}

func TestTelemetry(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)
	ctx := context.Background()

	tel := fixtures.Telemetry("VER", 58, 20)
	if err := UpsertTelemetry(ctx, pool, fixtures.AbuDhabi2021, tel); err != nil {
		t.Fatalf("UpsertTelemetry error = %v", err)
	}
	got, err := LoadTelemetry(ctx, pool, fixtures.AbuDhabi2021, "test", "VER", 58)
	if err != nil {
		t.Fatalf("LoadTelemetry error = %v", err)
	}
	if !reflect.DeepEqual(got, tel) {
		t.Errorf("LoadTelemetry() = %v, want %v", got, tel)
	}

	// second upsert replaces the samples
	short := fixtures.Telemetry("VER", 58, 5)
	if err := UpsertTelemetry(ctx, pool, fixtures.AbuDhabi2021, short); err != nil {
		t.Fatalf("UpsertTelemetry error = %v", err)
	}
	got, _ = LoadTelemetry(ctx, pool, fixtures.AbuDhabi2021, "test", "VER", 58)
	if len(got.Samples) != 5 {
		t.Errorf("samples after upsert = %d, want 5", len(got.Samples))
	}

	_, err = LoadTelemetry(ctx, pool, fixtures.AbuDhabi2021, "test", "HAM", 58)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LoadTelemetry() of missing lap error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestDeleteByKey(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)
	createSampleEntry(pool, otherKey)
	ctx := context.Background()
	UpsertTelemetry(ctx, pool, fixtures.AbuDhabi2021, fixtures.Telemetry("VER", 1, 3))

	tests := []struct {
		name string
		key  model.SessionKey
		want int
	}{
		{name: "existing", key: fixtures.AbuDhabi2021, want: 1},
		{name: "already deleted", key: fixtures.AbuDhabi2021, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeleteByKey(ctx, pool, tt.key)
			if err != nil {
				t.Fatalf("DeleteByKey error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DeleteByKey() = %v, want %v", got, tt.want)
			}
		})
	}
	laps, _ := LoadLaps(ctx, pool, fixtures.AbuDhabi2021)
	if len(laps) != 0 {
		t.Errorf("laps of deleted session remain: %d", len(laps))
	}
	if _, err := LoadTelemetry(ctx, pool, fixtures.AbuDhabi2021, "test", "VER", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("telemetry of deleted session remains: %v", err)
	}
	if found, _ := Exists(ctx, pool, otherKey, "test"); !found {
		t.Errorf("other session was deleted")
	}
}

func TestDeleteAll(t *testing.T) {
	pool := testdb.InitTestDb(t)
	createSampleEntry(pool, fixtures.AbuDhabi2021)
	createSampleEntry(pool, otherKey)

	got, err := DeleteAll(context.Background(), pool)
	if err != nil {
		t.Fatalf("DeleteAll error = %v", err)
	}
	if got != 2 {
		t.Errorf("DeleteAll() = %v, want 2", got)
	}
}
