package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racedash/pkg/model"
)

func TestBrakeAsInt(t *testing.T) {
	samples := []model.Sample{{Brake: true}, {Brake: false}, {Brake: true}}
	assert.Equal(t, []int{1, 0, 1}, BrakeAsInt(samples))
	assert.Empty(t, BrakeAsInt(nil))
}

func TestAddDistance(t *testing.T) {
	// 36 km/h = 10 m/s
	samples := []model.Sample{
		{Time: 0, Speed: 36, Distance: 999},
		{Time: time.Second, Speed: 36},
		{Time: 3 * time.Second, Speed: 72},
	}
	got, err := AddDistance(samples)
	require.NoError(t, err)
	assert.InDelta(t, 0, got[0].Distance, 1e-9)
	assert.InDelta(t, 10, got[1].Distance, 1e-9)
	// (10+20)/2 * 2s
	assert.InDelta(t, 40, got[2].Distance, 1e-9)
	// input untouched
	assert.InDelta(t, 999, samples[0].Distance, 0)
}

func TestAddDistance_unordered(t *testing.T) {
	_, err := AddDistance([]model.Sample{{Time: time.Second}, {Time: 0}})
	assert.ErrorIs(t, err, ErrInvalidTelemetry)
}

func TestValidate(t *testing.T) {
	ok := &model.Telemetry{Samples: []model.Sample{
		{Distance: 0, Speed: 100, Throttle: 100, Gear: 7, RPM: 11000},
		{Distance: 5, Speed: 80, Throttle: 0, Brake: true, Gear: 6, RPM: 10000},
	}}
	assert.NoError(t, Validate(ok))

	bad := &model.Telemetry{Driver: "VER", LapNumber: 3, Samples: []model.Sample{
		{Distance: 10, Throttle: 120},
		{Distance: 5, Speed: -1},
	}}
	err := Validate(bad)
	assert.ErrorIs(t, err, ErrInvalidTelemetry)
	assert.Contains(t, err.Error(), "VER lap 3")
}

func TestValidate_nonFinite(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name   string
		sample model.Sample
		want   string
	}{
		{"nan speed", model.Sample{Distance: 5, Speed: nan, Throttle: 50}, "speed NaN"},
		{"inf speed", model.Sample{Distance: 5, Speed: inf, Throttle: 50}, "speed +Inf"},
		{"nan throttle", model.Sample{Distance: 5, Speed: 100, Throttle: nan}, "throttle NaN"},
		{"inf throttle", model.Sample{Distance: 5, Speed: 100, Throttle: inf}, "throttle +Inf"},
		{"nan distance", model.Sample{Distance: nan, Speed: 100, Throttle: 50}, "distance NaN"},
		{"inf distance", model.Sample{Distance: inf, Speed: 100, Throttle: 50}, "distance +Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel := &model.Telemetry{Driver: "HAM", LapNumber: 1, Samples: []model.Sample{
				{Distance: 0, Speed: 100, Throttle: 50},
				tt.sample,
			}}
			err := Validate(tel)
			require.ErrorIs(t, err, ErrInvalidTelemetry)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestChannels(t *testing.T) {
	samples := []model.Sample{
		{Distance: 1, Speed: 2, Throttle: 3, Gear: 4, RPM: 5},
		{Distance: 6, Speed: 7, Throttle: 8, Gear: 0, RPM: 10},
	}
	assert.Equal(t, []float64{1, 6}, Distances(samples))
	assert.Equal(t, []float64{2, 7}, Speeds(samples))
	assert.Equal(t, []float64{3, 8}, Throttles(samples))
	assert.Equal(t, []float64{4, 0}, Gears(samples))
	assert.Equal(t, []float64{5, 10}, RPMs(samples))
}
