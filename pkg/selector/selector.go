// Package selector slices the lap table of a session.
// All functions are free of side effects apart from fetching telemetry
// through the session.
package selector

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racedash/pkg/model"
)

// DriverLaps returns the laps of driver ordered by lap number.
func DriverLaps(laps []model.Lap, driver string) []model.Lap {
	ret := lo.Filter(laps, func(l model.Lap, _ int) bool { return l.Driver == driver })
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].LapNumber < ret[j].LapNumber })
	return ret
}

// TimedLaps drops laps without lap time (pit in/out, DNF).
func TimedLaps(laps []model.Lap) []model.Lap {
	return lo.Filter(laps, func(l model.Lap, _ int) bool { return l.LapTime.IsValue() })
}

// FromLap returns the laps with a lap number of at least n.
func FromLap(laps []model.Lap, n int) []model.Lap {
	return lo.Filter(laps, func(l model.Lap, _ int) bool { return l.LapNumber >= n })
}

// FastestLapRecord returns the lap of driver with the minimum lap time.
// On a tie the earliest lap wins.
func FastestLapRecord(laps []model.Lap, driver string) (model.Lap, error) {
	own := DriverLaps(laps, driver)
	if len(own) == 0 {
		return model.Lap{}, &NoLapsFoundError{Driver: driver}
	}
	timed := TimedLaps(own)
	if len(timed) == 0 {
		return model.Lap{}, &NoCompletedLapError{Driver: driver}
	}
	return lo.MinBy(timed, func(a, b model.Lap) bool {
		return a.LapTime.MustGet() < b.LapTime.MustGet()
	}), nil
}

// FastestLap returns the telemetry of the fastest lap of driver.
func FastestLap(ctx context.Context, s *model.Session, driver string) (*model.Telemetry, error) {
	lap, err := FastestLapRecord(s.Laps(), driver)
	if err != nil {
		return nil, err
	}
	return s.Telemetry(ctx, lap)
}

func LapRecord(laps []model.Lap, driver string, n int) (model.Lap, error) {
	lap, ok := lo.Find(laps, func(l model.Lap) bool {
		return l.Driver == driver && l.LapNumber == n
	})
	if !ok {
		return model.Lap{}, &LapNotFoundError{Driver: driver, Lap: n}
	}
	return lap, nil
}

// LapByNumber returns the telemetry of lap n of driver.
func LapByNumber(
	ctx context.Context, s *model.Session, driver string, n int,
) (*model.Telemetry, error) {
	lap, err := LapRecord(s.Laps(), driver, n)
	if err != nil {
		return nil, err
	}
	return s.Telemetry(ctx, lap)
}

// Drivers returns the driver codes of the lap table in order of appearance.
func Drivers(laps []model.Lap) []string {
	return lo.Uniq(lo.Map(laps, func(l model.Lap, _ int) string { return l.Driver }))
}

// MaxLap returns the highest lap number of driver, 0 if there is none.
func MaxLap(laps []model.Lap, driver string) int {
	return lo.Reduce(DriverLaps(laps, driver), func(agg int, l model.Lap, _ int) int {
		return max(agg, l.LapNumber)
	}, 0)
}

// MinLapTime returns the fastest lap time across laps, ok is false when no
// lap has a time.
func MinLapTime(laps []model.Lap) (time.Duration, bool) {
	timed := TimedLaps(laps)
	if len(timed) == 0 {
		return 0, false
	}
	return lo.Min(lo.Map(timed, func(l model.Lap, _ int) time.Duration {
		return l.LapTime.MustGet()
	})), true
}
