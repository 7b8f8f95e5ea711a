// Package storetest contains behavior tests shared by all store backends.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/store"
	"github.com/mpapenbr/racedash/testsupport/fixtures"
)

var otherKey = model.SessionKey{Year: 2021, Event: "Jeddah", Type: model.Race}

// Run executes the store tests. s must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	key := fixtures.AbuDhabi2021

	t.Run("missing session", func(t *testing.T) {
		_, err := s.LoadLaps(ctx, key)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.LoadTelemetry(ctx, key, "VER", 1)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("laps", func(t *testing.T) {
		laps := fixtures.ScenarioLaps()
		require.NoError(t, s.SaveLaps(ctx, key, laps))
		got, err := s.LoadLaps(ctx, key)
		require.NoError(t, err)
		require.Len(t, got, len(laps))
		// stored ordered by driver and lap
		assert.Equal(t, "A", got[0].Driver)
		assert.Equal(t, 90000, int(got[0].LapTime.MustGet().Milliseconds()))
		assert.Equal(t, 2, got[0].Position.MustGet())
		assert.True(t, got[2].LapTime.IsNull())
		assert.True(t, got[2].Position.IsNull())
		assert.Equal(t, 86500, int(got[5].LapTime.MustGet().Milliseconds()))

		// saving again replaces the table
		require.NoError(t, s.SaveLaps(ctx, key, laps[:3]))
		got, err = s.LoadLaps(ctx, key)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("empty lap table", func(t *testing.T) {
		require.NoError(t, s.SaveLaps(ctx, otherKey, nil))
		got, err := s.LoadLaps(ctx, otherKey)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("telemetry", func(t *testing.T) {
		tel := fixtures.Telemetry("VER", 12, 15)
		require.NoError(t, s.SaveTelemetry(ctx, key, tel))
		require.NoError(t, s.SaveTelemetry(ctx, key, tel))
		got, err := s.LoadTelemetry(ctx, key, "VER", 12)
		require.NoError(t, err)
		assert.Equal(t, tel, got)

		_, err = s.LoadTelemetry(ctx, key, "VER", 13)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		n, err := s.Clear(ctx, &key)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = s.LoadTelemetry(ctx, key, "VER", 12)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.LoadLaps(ctx, otherKey)
		assert.NoError(t, err)

		n, err = s.Clear(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = s.LoadLaps(ctx, otherKey)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

// RunSources checks that sessions of different sources do not mix. Both
// stores must use the same empty storage with different sources.
func RunSources(t *testing.T, archive, openf1 store.Store) {
	t.Helper()
	ctx := context.Background()
	key := fixtures.AbuDhabi2021

	require.NoError(t, archive.SaveLaps(ctx, key, fixtures.ScenarioLaps()))
	require.NoError(t, archive.SaveTelemetry(ctx, key, fixtures.Telemetry("VER", 1, 5)))

	_, err := openf1.LoadLaps(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound, "laps of other source")
	_, err = openf1.LoadTelemetry(ctx, key, "VER", 1)
	assert.ErrorIs(t, err, store.ErrNotFound, "telemetry of other source")

	require.NoError(t, openf1.SaveLaps(ctx, key, fixtures.RaceLaps(2, "VER")))
	got, err := openf1.LoadLaps(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	_, err = openf1.LoadTelemetry(ctx, key, "VER", 1)
	assert.ErrorIs(t, err, store.ErrNotFound, "telemetry of replaced session")

	_, err = archive.LoadLaps(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound, "replaced session")
	_, err = archive.LoadTelemetry(ctx, key, "VER", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
