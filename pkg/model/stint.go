package model

const (
	Soft         = "Soft"
	Medium       = "Medium"
	Hard         = "Hard"
	Intermediate = "Intermediate"
	Wet          = "Wet"
)

// Stint is a tyre stint covering the laps [StartLap, EndLap).
type Stint struct {
	Driver   string `json:"driver" yaml:"driver"`
	Compound string `json:"compound" yaml:"compound"`
	StartLap int    `json:"start" yaml:"start"`
	EndLap   int    `json:"end" yaml:"end"`
}

func (s Stint) Laps() int {
	return s.EndLap - s.StartLap
}
