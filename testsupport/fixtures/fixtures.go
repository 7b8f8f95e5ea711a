// Package fixtures provides synthetic sessions for tests.
package fixtures

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racedash/pkg/model"
)

var AbuDhabi2021 = model.SessionKey{Year: 2021, Event: "Abu Dhabi", Type: model.Race}

func Secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LapTimes builds the laps of driver from lap times in seconds,
// a negative value means a null lap time. Positions are set to pos
// for completed laps.
func LapTimes(driver string, pos int, secs ...float64) []model.Lap {
	ret := make([]model.Lap, 0, len(secs))
	for i, s := range secs {
		l := model.Lap{Driver: driver, LapNumber: i + 1, Compound: model.Medium}
		if s >= 0 {
			l.LapTime = null.From(Secs(s))
			l.Position = null.From(pos)
		}
		ret = append(ret, l)
	}
	return ret
}

// ScenarioLaps is the two driver scenario
// A: 90.0, 88.2, null  B: 91.0, 87.0, 86.5
func ScenarioLaps() []model.Lap {
	return append(LapTimes("A", 2, 90.0, 88.2, -1), LapTimes("B", 1, 91.0, 87.0, 86.5)...)
}

// RaceLaps creates a full race of n laps for each driver with slightly
// different lap times.
func RaceLaps(n int, drivers ...string) []model.Lap {
	ret := []model.Lap{}
	for d, driver := range drivers {
		secs := make([]float64, n)
		for i := range secs {
			secs[i] = 88 + float64(d)*0.3 + float64(i%5)*0.1
		}
		ret = append(ret, LapTimes(driver, d+1, secs...)...)
	}
	return ret
}

// Telemetry creates a series with n samples, every 10m, brake on every
// third sample.
func Telemetry(driver string, lap, n int) *model.Telemetry {
	samples := make([]model.Sample, n)
	for i := range samples {
		samples[i] = model.Sample{
			Time:     time.Duration(i) * 100 * time.Millisecond,
			Distance: float64(i) * 10,
			Speed:    200 + float64(i%10),
			Throttle: float64((i * 7) % 101),
			Brake:    i%3 == 0,
			Gear:     1 + i%8,
			RPM:      10000 + i,
		}
	}
	return &model.Telemetry{Driver: driver, LapNumber: lap, Samples: samples}
}

// Fetcher returns synthetic telemetry and records the requested laps.
type Fetcher struct {
	mu       sync.Mutex
	Requests []string
	Samples  int
	Fail     map[string]error // keyed by "DRIVER/lap"
}

func (f *Fetcher) FetchTelemetry(
	ctx context.Context, driver string, lap int,
) (*model.Telemetry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := fmt.Sprintf("%s/%d", driver, lap)
	f.Requests = append(f.Requests, k)
	if err, ok := f.Fail[k]; ok {
		return nil, err
	}
	n := f.Samples
	if n == 0 {
		n = 20
	}
	return Telemetry(driver, lap, n), nil
}

// Provider hands out sessions built from Laps and counts the loads.
type Provider struct {
	mu      sync.Mutex
	Laps    []model.Lap
	Fetcher *Fetcher
	Err     error
	Loads   int
}

func (p *Provider) Load(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Loads++
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Fetcher == nil {
		p.Fetcher = &Fetcher{}
	}
	return model.NewSession(key, p.Laps, p.Fetcher), nil
}

func (p *Provider) LoadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Loads
}
