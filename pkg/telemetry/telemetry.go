// Package telemetry holds helpers working on telemetry sample series.
package telemetry

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/mpapenbr/racedash/pkg/model"
)

var ErrInvalidTelemetry = errors.New("invalid telemetry")

const kmhToMs = 1 / 3.6

// AddDistance returns a copy of samples whose Distance is the accumulated
// distance driven since the first sample, integrating speed over time.
// Samples must be ordered by time.
func AddDistance(samples []model.Sample) ([]model.Sample, error) {
	ret := make([]model.Sample, len(samples))
	copy(ret, samples)
	if len(ret) == 0 {
		return ret, nil
	}
	ret[0].Distance = 0
	for i := 1; i < len(ret); i++ {
		dt := ret[i].Time - ret[i-1].Time
		if dt < 0 {
			return nil, fmt.Errorf("%w: sample %d is earlier than its predecessor",
				ErrInvalidTelemetry, i)
		}
		// trapezoid between both speed readings
		avg := (ret[i].Speed + ret[i-1].Speed) / 2 * kmhToMs
		ret[i].Distance = ret[i-1].Distance + avg*dt.Seconds()
	}
	return ret, nil
}

// Validate checks ordering and value domains of a telemetry series.
// NaN and infinite values are rejected.
func Validate(t *model.Telemetry) error {
	var errs []error
	for i, s := range t.Samples {
		switch {
		case !finite(s.Distance):
			errs = append(errs, fmt.Errorf("sample %d: distance %v is not finite", i, s.Distance))
		case i > 0 && s.Distance < t.Samples[i-1].Distance:
			errs = append(errs, fmt.Errorf("sample %d: distance decreases", i))
		}
		if !finite(s.Speed) || !(s.Speed >= 0) {
			errs = append(errs, fmt.Errorf("sample %d: speed %v out of range", i, s.Speed))
		}
		if !(s.Throttle >= 0 && s.Throttle <= 100) {
			errs = append(errs, fmt.Errorf("sample %d: throttle %v out of range", i, s.Throttle))
		}
		if s.Gear < 0 {
			errs = append(errs, fmt.Errorf("sample %d: negative gear", i))
		}
		if s.RPM < 0 {
			errs = append(errs, fmt.Errorf("sample %d: negative rpm", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w (%s lap %d): %w", ErrInvalidTelemetry,
			t.Driver, t.LapNumber, errors.Join(errs...))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BrakeAsInt maps the boolean brake channel to 0/1.
func BrakeAsInt(samples []model.Sample) []int {
	return lo.Map(samples, func(s model.Sample, _ int) int {
		if s.Brake {
			return 1
		}
		return 0
	})
}

func Distances(samples []model.Sample) []float64 {
	return lo.Map(samples, func(s model.Sample, _ int) float64 { return s.Distance })
}

func Speeds(samples []model.Sample) []float64 {
	return lo.Map(samples, func(s model.Sample, _ int) float64 { return s.Speed })
}

func Throttles(samples []model.Sample) []float64 {
	return lo.Map(samples, func(s model.Sample, _ int) float64 { return s.Throttle })
}

func Gears(samples []model.Sample) []float64 {
	return lo.Map(samples, func(s model.Sample, _ int) float64 { return float64(s.Gear) })
}

func RPMs(samples []model.Sample) []float64 {
	return lo.Map(samples, func(s model.Sample, _ int) float64 { return float64(s.RPM) })
}
