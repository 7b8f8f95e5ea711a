// Package store persists fetched sessions so that later runs do not have to
// contact the data source again.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racedash/pkg/model"
)

var ErrNotFound = errors.New("not found in store")

type Store interface {
	// LoadLaps returns ErrNotFound if the session is not stored.
	LoadLaps(ctx context.Context, key model.SessionKey) ([]model.Lap, error)
	SaveLaps(ctx context.Context, key model.SessionKey, laps []model.Lap) error
	// LoadTelemetry returns ErrNotFound if the lap is not stored.
	LoadTelemetry(ctx context.Context, key model.SessionKey, driver string, lap int) (
		*model.Telemetry, error)
	SaveTelemetry(ctx context.Context, key model.SessionKey, t *model.Telemetry) error
	// Clear removes the given session, all sessions if key is nil.
	// It returns the number of removed sessions.
	Clear(ctx context.Context, key *model.SessionKey) (int, error)
	Close() error
}

// LapRow is the storage representation of a lap.
type LapRow struct {
	Driver    string
	LapNumber int
	LapTimeMs *int64
	Position  *int
	Compound  string
}

func ToLapRow(l model.Lap) LapRow {
	ret := LapRow{Driver: l.Driver, LapNumber: l.LapNumber, Compound: l.Compound}
	if d, ok := l.LapTime.Get(); ok {
		ms := d.Round(time.Millisecond).Milliseconds()
		ret.LapTimeMs = &ms
	}
	ret.Position = l.Position.Ptr()
	return ret
}

func (r LapRow) Lap() model.Lap {
	ret := model.Lap{
		Driver:    r.Driver,
		LapNumber: r.LapNumber,
		Position:  null.FromPtr(r.Position),
		Compound:  r.Compound,
	}
	if r.LapTimeMs != nil {
		ret.LapTime = null.From(time.Duration(*r.LapTimeMs) * time.Millisecond)
	}
	return ret
}

func EncodeSamples(samples []model.Sample) ([]byte, error) {
	if samples == nil {
		samples = []model.Sample{}
	}
	return json.Marshal(samples)
}

func DecodeSamples(data []byte) ([]model.Sample, error) {
	var ret []model.Sample
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}
