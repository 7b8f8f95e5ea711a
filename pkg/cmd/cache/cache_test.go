package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/provider/cached"
	"github.com/mpapenbr/racedash/pkg/store/sqlite"
	"github.com/mpapenbr/racedash/pkg/story"
	"github.com/mpapenbr/racedash/testsupport/fixtures"
)

func TestWarm(t *testing.T) {
	s, err := sqlite.Open(t.TempDir(), "test")
	require.NoError(t, err)
	defer s.Close()

	up := &fixtures.Provider{Laps: fixtures.RaceLaps(58, "VER", "HAM")}
	n, err := Warm(context.Background(), cached.New(up, s), story.Default())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.ElementsMatch(t, []string{"VER/1", "VER/58", "HAM/1", "HAM/58"}, up.Fetcher.Requests)

	laps, err := s.LoadLaps(context.Background(), fixtures.AbuDhabi2021)
	require.NoError(t, err)
	assert.Len(t, laps, 116)
	tel, err := s.LoadTelemetry(context.Background(), fixtures.AbuDhabi2021, "HAM", 58)
	require.NoError(t, err)
	assert.Equal(t, 58, tel.LapNumber)

	removed, err := Clear(context.Background(), s, &fixtures.AbuDhabi2021)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = s.LoadLaps(context.Background(), fixtures.AbuDhabi2021)
	assert.Error(t, err)
}

func TestWarm_partialTelemetry(t *testing.T) {
	up := &fixtures.Provider{
		Laps:    fixtures.RaceLaps(40, "VER", "HAM"),
		Fetcher: &fixtures.Fetcher{Fail: map[string]error{"HAM/1": errors.New("no data")}},
	}
	n, err := Warm(context.Background(), up, story.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only VER/1, lap 58 does not exist")
}

func TestWarm_loadFails(t *testing.T) {
	up := &fixtures.Provider{Err: errors.New("offline")}
	_, err := Warm(context.Background(), up, story.Default())
	assert.True(t, provider.IsDataLoadError(err))
}

func TestClear_all(t *testing.T) {
	s, err := sqlite.Open(t.TempDir(), "test")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	other := model.SessionKey{Year: 2021, Event: "Jeddah", Type: model.Race}
	require.NoError(t, s.SaveLaps(ctx, fixtures.AbuDhabi2021, fixtures.RaceLaps(2, "VER")))
	require.NoError(t, s.SaveLaps(ctx, other, fixtures.RaceLaps(2, "HAM")))

	n, err := Clear(ctx, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
