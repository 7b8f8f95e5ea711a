package chart

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/selector"
	"github.com/mpapenbr/racedash/pkg/telemetry"
)

const (
	defaultHeight  = 500
	lapTimesHeight = 600
	compactHeight  = 400
	lineWidth      = 3
	boldLineWidth  = 4
	markerSize     = 6
	boldMarkerSize = 8
	safetyCarColor = "yellow"
	finalLapColor  = "lime"
	stintBorder    = "black"
	xDistance      = "Distance (m)"
	xLapNumber     = "Lap Number"
)

// Competitor identifies a driver in a comparison.
type Competitor struct {
	Code  string `json:"code" yaml:"code"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// Label is the series name of the competitor.
func (c Competitor) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Code
}

type CompetitorTelemetry struct {
	Competitor
	Telemetry *model.Telemetry
}

type CompetitorLaps struct {
	Competitor
	Laps []model.Lap
}

type Channel string

const (
	ChannelSpeed    Channel = "speed"
	ChannelThrottle Channel = "throttle"
	ChannelBrake    Channel = "brake"
	ChannelGear     Channel = "gear"
	ChannelRPM      Channel = "rpm"
)

type channelLayout struct {
	title   string
	yTitle  string
	palette []string // overrides the competitor colors if set
	values  func([]model.Sample) []float64
}

var channels = map[Channel]channelLayout{
	ChannelSpeed: {
		title:  "Speed vs Distance - Fastest Lap Comparison",
		yTitle: "Speed (km/h)",
		values: telemetry.Speeds,
	},
	ChannelThrottle: {
		title:   "Throttle Application vs Distance",
		yTitle:  "Throttle (%)",
		palette: []string{"#FF6B35", "#2ECC71"},
		values:  telemetry.Throttles,
	},
	ChannelBrake: {
		title:   "Brake Application vs Distance",
		yTitle:  "Brake (On/Off)",
		palette: []string{"#9B59B6", "#1ABC9C"},
		values: func(s []model.Sample) []float64 {
			return lo.Map(telemetry.BrakeAsInt(s), func(v, _ int) float64 { return float64(v) })
		},
	},
	ChannelGear: {
		title:  "Gear Usage vs Distance",
		yTitle: "Gear Number",
		values: telemetry.Gears,
	},
	ChannelRPM: {
		title:  "RPM vs Distance",
		yTitle: "RPM",
		values: telemetry.RPMs,
	},
}

func Channels() []Channel {
	return []Channel{ChannelSpeed, ChannelThrottle, ChannelBrake, ChannelGear, ChannelRPM}
}

// TelemetryComparison plots one telemetry channel of two drivers against
// distance. The samples are used as they are, no resampling takes place.
func TelemetryComparison(ch Channel, a, b CompetitorTelemetry, overlays ...Annotation) (Description, error) {
	layout, ok := channels[ch]
	if !ok {
		return Description{}, fmt.Errorf("unknown telemetry channel %q", ch)
	}
	d := Description{
		ID:           "telemetry-" + string(ch),
		Kind:         KindLine,
		Title:        layout.title,
		XAxisTitle:   xDistance,
		YAxisTitle:   layout.yTitle,
		Height:       defaultHeight,
		HoverUnified: true,
		ShowLegend:   true,
		Annotations:  append([]Annotation(nil), overlays...),
	}
	for i, c := range []CompetitorTelemetry{a, b} {
		color := c.Color
		if layout.palette != nil {
			color = layout.palette[i]
		}
		d.Series = append(d.Series, telemetrySeries(c, layout.values, color, lineWidth))
	}
	return d, nil
}

func Speed(a, b CompetitorTelemetry) Description    { return mustChannel(ChannelSpeed, a, b) }
func Throttle(a, b CompetitorTelemetry) Description { return mustChannel(ChannelThrottle, a, b) }
func Brake(a, b CompetitorTelemetry) Description    { return mustChannel(ChannelBrake, a, b) }
func Gears(a, b CompetitorTelemetry) Description    { return mustChannel(ChannelGear, a, b) }
func RPM(a, b CompetitorTelemetry) Description      { return mustChannel(ChannelRPM, a, b) }

func mustChannel(ch Channel, a, b CompetitorTelemetry) Description {
	d, err := TelemetryComparison(ch, a, b)
	if err != nil {
		panic(err)
	}
	return d
}

func telemetrySeries(
	c CompetitorTelemetry,
	values func([]model.Sample) []float64,
	color string,
	width float64,
) Series {
	var samples []model.Sample
	if c.Telemetry != nil {
		samples = c.Telemetry.Samples
	}
	return Series{
		Name:  c.Label(),
		X:     telemetry.Distances(samples),
		Y:     values(samples),
		Color: color,
		Width: width,
		Mode:  ModeLines,
	}
}

// LapTimeSeconds converts a lap duration to fractional seconds.
func LapTimeSeconds(d time.Duration) float64 {
	return d.Seconds()
}

// SafetyCar returns the shaded overlay of a safety car period.
func SafetyCar(startLap, endLap int) Annotation {
	return Region(float64(startLap), float64(endLap), "Safety Car", safetyCarColor)
}

// LapMarker returns a vertical marker at the given lap.
func LapMarker(lap int, label string) Annotation {
	return Marker(float64(lap), label, finalLapColor)
}

func lapTimeSeries(c CompetitorLaps, width float64, marker int) Series {
	timed := selector.TimedLaps(c.Laps)
	return Series{
		Name: c.Label(),
		X:    lo.Map(timed, func(l model.Lap, _ int) float64 { return float64(l.LapNumber) }),
		Y: lo.Map(timed, func(l model.Lap, _ int) float64 {
			return LapTimeSeconds(l.LapTime.MustGet())
		}),
		Color:      c.Color,
		Width:      width,
		Mode:       ModeLinesMarkers,
		MarkerSize: marker,
	}
}

// LapTimes plots the lap times in seconds of both drivers over the whole
// race. Laps without a lap time are left out.
func LapTimes(a, b CompetitorLaps, overlays ...Annotation) Description {
	return Description{
		ID:           "lap-times",
		Kind:         KindLine,
		Title:        "Lap Time Evolution Throughout the Race",
		XAxisTitle:   xLapNumber,
		YAxisTitle:   "Lap Time (seconds)",
		Height:       lapTimesHeight,
		HoverUnified: true,
		ShowLegend:   true,
		Series: []Series{
			lapTimeSeries(a, lineWidth, markerSize),
			lapTimeSeries(b, lineWidth, markerSize),
		},
		Annotations: append([]Annotation(nil), overlays...),
	}
}

// FinalLaps plots the lap times from lap fromLap onwards.
func FinalLaps(a, b CompetitorLaps, fromLap int, overlays ...Annotation) Description {
	a.Laps = selector.FromLap(selector.TimedLaps(a.Laps), fromLap)
	b.Laps = selector.FromLap(selector.TimedLaps(b.Laps), fromLap)
	last := max(lo.Max(lapNumbers(a.Laps)), lo.Max(lapNumbers(b.Laps)))
	title := "Final Laps - The Championship Decider"
	if last >= fromLap {
		title = fmt.Sprintf("Final %d Laps - The Championship Decider", last-fromLap+1)
	}
	return Description{
		ID:           "final-laps",
		Kind:         KindLine,
		Title:        title,
		XAxisTitle:   xLapNumber,
		YAxisTitle:   "Lap Time (seconds)",
		Height:       defaultHeight,
		HoverUnified: true,
		ShowLegend:   true,
		Series: []Series{
			lapTimeSeries(a, boldLineWidth, boldMarkerSize),
			lapTimeSeries(b, boldLineWidth, boldMarkerSize),
		},
		Annotations: append([]Annotation(nil), overlays...),
	}
}

func lapNumbers(laps []model.Lap) []int {
	return lo.Map(laps, func(l model.Lap, _ int) int { return l.LapNumber })
}

// TyreStrategy draws one horizontal bar per stint. Rows keep the order of
// the stint table.
func TyreStrategy(stints []model.Stint) (Description, error) {
	d := Description{
		ID:         "tyre-strategy",
		Kind:       KindBar,
		Title:      "Tyre Strategy Timeline - The Winning Decision",
		XAxisTitle: xLapNumber,
		Height:     compactHeight,
		ShowLegend: false,
	}
	for i, s := range stints {
		compound, color, err := CompoundColor(s.Compound)
		if err != nil {
			return Description{}, err
		}
		name := fmt.Sprintf("%s - %s", s.Driver, compound)
		d.Categories = append(d.Categories, name)
		d.Series = append(d.Series, Series{
			Name:        name,
			X:           []float64{float64(s.EndLap - s.StartLap)},
			Y:           []float64{float64(i)},
			Base:        []float64{float64(s.StartLap)},
			Row:         i,
			Color:       color,
			Mode:        ModeBar,
			BorderColor: stintBorder,
			Tooltip: fmt.Sprintf("<b>%s</b><br>Tyre: %s<br>Laps: %d-%d",
				s.Driver, compound, s.StartLap, s.EndLap),
		})
	}
	return d, nil
}

func positionSeries(c CompetitorLaps) Series {
	placed := lo.Filter(c.Laps, func(l model.Lap, _ int) bool {
		return l.Position.IsValue()
	})
	return Series{
		Name:       c.Label(),
		X:          lo.Map(placed, func(l model.Lap, _ int) float64 { return float64(l.LapNumber) }),
		Y:          lo.Map(placed, func(l model.Lap, _ int) float64 { return float64(l.Position.MustGet()) }),
		Color:      c.Color,
		Width:      boldLineWidth,
		Mode:       ModeLinesMarkers,
		MarkerSize: markerSize,
	}
}

// Positions plots the race position per lap. Position 1 is on top.
func Positions(a, b CompetitorLaps, overlays ...Annotation) Description {
	return Description{
		ID:          "positions",
		Kind:        KindLine,
		Title:       "Race Position Timeline - The Championship Moment",
		XAxisTitle:  xLapNumber,
		YAxisTitle:  "Race Position",
		Height:      compactHeight,
		YInverted:   true,
		ShowLegend:  true,
		Series:      []Series{positionSeries(a), positionSeries(b)},
		Annotations: append([]Annotation(nil), overlays...),
	}
}

// FinalLapSpeed compares the speed traces of the deciding lap.
func FinalLapSpeed(a, b CompetitorTelemetry, overlays ...Annotation) Description {
	return Description{
		ID:         "final-lap-speed",
		Kind:       KindLine,
		Title:      "Final Lap Speed Comparison - The Championship Moment",
		XAxisTitle: xDistance,
		YAxisTitle: "Speed (km/h)",
		Height:     defaultHeight,
		ShowLegend: true,
		Series: []Series{
			telemetrySeries(a, telemetry.Speeds, a.Color, boldLineWidth),
			telemetrySeries(b, telemetry.Speeds, b.Color, boldLineWidth),
		},
		Annotations: append([]Annotation(nil), overlays...),
	}
}
