package model

import "time"

// Sample is one telemetry sample.
type Sample struct {
	Time     time.Duration `json:"time"`     // since start of lap
	Distance float64       `json:"distance"` // meters
	Speed    float64       `json:"speed"`    // km/h
	Throttle float64       `json:"throttle"` // 0-100
	Brake    bool          `json:"brake"`
	Gear     int           `json:"gear"` // 0 is neutral
	RPM      int           `json:"rpm"`
}

// Telemetry is the sample series of one lap ordered by distance.
type Telemetry struct {
	Driver    string   `json:"driver"`
	LapNumber int      `json:"lapNumber"`
	Samples   []Sample `json:"samples"`
}
