package model

import (
	"math"
	"time"

	"github.com/aarondl/opt/null"
)

// Lap is one row of the lap table.
// LapTime is null for incomplete laps, Position is only set for completed laps.
type Lap struct {
	Driver    string                  `json:"driver"`
	LapNumber int                     `json:"lapNumber"`
	LapTime   null.Val[time.Duration] `json:"lapTime"`
	Position  null.Val[int]           `json:"position"`
	Compound  string                  `json:"compound,omitempty"`
}

// Seconds returns the lap time in seconds. ok is false for a null lap time.
func (l Lap) Seconds() (secs float64, ok bool) {
	d, ok := l.LapTime.Get()
	if !ok {
		return 0, false
	}
	return d.Seconds(), true
}

// LapDuration converts seconds to a lap time with millisecond resolution,
// the resolution lap times are stored with.
func LapDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs*1000)) * time.Millisecond
}

func (l Lap) Completed() bool {
	return l.LapTime.IsValue()
}
