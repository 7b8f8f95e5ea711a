package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/testsupport/fixtures"
)

func lapNumbers(laps []model.Lap) []int {
	return lo.Map(laps, func(l model.Lap, _ int) int { return l.LapNumber })
}

func TestDriverLaps_contiguous(t *testing.T) {
	laps := fixtures.RaceLaps(58, "VER", "HAM")
	// shuffle order a bit
	laps[0], laps[len(laps)-1] = laps[len(laps)-1], laps[0]
	for _, d := range Drivers(laps) {
		got := DriverLaps(laps, d)
		assert.Equal(t, lo.RangeFrom(1, MaxLap(laps, d)), lapNumbers(got), d)
	}
}

func TestDriverLaps_unknownDriver(t *testing.T) {
	assert.Empty(t, DriverLaps(fixtures.ScenarioLaps(), "X"))
}

func TestFastestLapRecord(t *testing.T) {
	laps := fixtures.ScenarioLaps()
	tests := []struct {
		name    string
		laps    []model.Lap
		driver  string
		wantLap int
		wantErr error
	}{
		{name: "B lap 3", laps: laps, driver: "B", wantLap: 3},
		{name: "A ignores null", laps: laps, driver: "A", wantLap: 2},
		{name: "unknown", laps: laps, driver: "C", wantErr: ErrNoLapsFound},
		{
			name: "no completed", driver: "D", wantErr: ErrNoCompletedLap,
			laps: fixtures.LapTimes("D", 1, -1, -1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FastestLapRecord(tt.laps, tt.driver)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsSelectionError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLap, got.LapNumber)
			minTime, ok := MinLapTime(DriverLaps(tt.laps, tt.driver))
			require.True(t, ok)
			assert.Equal(t, minTime, got.LapTime.MustGet())
		})
	}
}

func TestFastestLapRecord_tie(t *testing.T) {
	laps := fixtures.LapTimes("A", 1, 88.0, 87.5, 87.5)
	got, err := FastestLapRecord(laps, "A")
	require.NoError(t, err)
	assert.Equal(t, fixtures.Secs(87.5), got.LapTime.MustGet())
}

func TestFastestLap_fetchesTelemetry(t *testing.T) {
	f := &fixtures.Fetcher{}
	s := model.NewSession(fixtures.AbuDhabi2021, fixtures.ScenarioLaps(), f)
	tel, err := FastestLap(context.Background(), s, "B")
	require.NoError(t, err)
	assert.Equal(t, 3, tel.LapNumber)
	assert.Equal(t, []string{"B/3"}, f.Requests)

	_, err = FastestLap(context.Background(), s, "Z")
	var nlf *NoLapsFoundError
	require.ErrorAs(t, err, &nlf)
	assert.Equal(t, "Z", nlf.Driver)
}

func TestLapByNumber(t *testing.T) {
	f := &fixtures.Fetcher{}
	s := model.NewSession(fixtures.AbuDhabi2021, fixtures.RaceLaps(58, "VER", "HAM"), f)
	tel, err := LapByNumber(context.Background(), s, "HAM", 58)
	require.NoError(t, err)
	assert.Equal(t, "HAM", tel.Driver)
	assert.Equal(t, 58, tel.LapNumber)

	_, err = LapByNumber(context.Background(), s, "HAM", 59)
	var lnf *LapNotFoundError
	require.ErrorAs(t, err, &lnf)
	assert.Equal(t, 59, lnf.Lap)
	assert.EqualError(t, err, "lap 59 not found for driver HAM")
}

func TestTimedLaps(t *testing.T) {
	got := TimedLaps(fixtures.ScenarioLaps())
	assert.Len(t, got, 5)
	for _, l := range got {
		assert.True(t, l.LapTime.IsValue())
	}
}

func TestFromLap(t *testing.T) {
	laps := DriverLaps(fixtures.RaceLaps(58, "VER"), "VER")
	final := FromLap(laps, 49)
	assert.Equal(t, lo.RangeFrom(49, 10), lapNumbers(final))
}

func TestFromLap_withNullLapTimes(t *testing.T) {
	secs := make([]float64, 58)
	for i := range secs {
		secs[i] = 90
	}
	secs[52] = -1 // lap 53
	secs[54] = -1 // lap 55
	laps := fixtures.LapTimes("VER", 1, secs...)
	final := FromLap(TimedLaps(laps), 49)
	assert.Len(t, final, 8)
	assert.NotContains(t, lapNumbers(final), 53)
	assert.NotContains(t, lapNumbers(final), 55)
}

func TestIsSelectionError(t *testing.T) {
	assert.False(t, IsSelectionError(errors.New("other")))
	assert.True(t, IsSelectionError(&LapNotFoundError{Driver: "A", Lap: 1}))
}
