// Package chart builds declarative chart descriptions from selected race data.
// Builders are pure, the result is a plain serializable value that any
// rendering collaborator can turn into a picture.
package chart

import "github.com/aarondl/opt/null"

type (
	Kind string
	Mode string
)

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"

	ModeLines        Mode = "lines"
	ModeLinesMarkers Mode = "lines+markers"
	ModeBar          Mode = "bar"
)

type Description struct {
	ID           string       `json:"id"`
	Kind         Kind         `json:"kind"`
	Title        string       `json:"title"`
	XAxisTitle   string       `json:"xAxisTitle,omitempty"`
	YAxisTitle   string       `json:"yAxisTitle,omitempty"`
	Height       int          `json:"height"`
	YInverted    bool         `json:"yInverted,omitempty"`
	HoverUnified bool         `json:"hoverUnified,omitempty"`
	ShowLegend   bool         `json:"showLegend"`
	Categories   []string     `json:"categories,omitempty"` // y axis labels of bar rows
	Series       []Series     `json:"series"`
	Annotations  []Annotation `json:"annotations,omitempty"`
}

type Series struct {
	Name        string    `json:"name"`
	X           []float64 `json:"x"`
	Y           []float64 `json:"y"`
	Base        []float64 `json:"base,omitempty"` // bar start offsets
	Row         int       `json:"row,omitempty"`
	Color       string    `json:"color"`
	Width       float64   `json:"width,omitempty"`
	Mode        Mode      `json:"mode"`
	MarkerSize  int       `json:"markerSize,omitempty"`
	BorderColor string    `json:"borderColor,omitempty"`
	Tooltip     string    `json:"tooltip,omitempty"`
}

func (s Series) Len() int {
	return len(s.Y)
}

// Annotation marks a vertical line at Start (End is null) or the region
// [Start, End] on the x axis.
type Annotation struct {
	Start   float64           `json:"start"`
	End     null.Val[float64] `json:"end"`
	Label   string            `json:"label"`
	Color   string            `json:"color,omitempty"`
	Dashed  bool              `json:"dashed,omitempty"`
	Opacity float64           `json:"opacity,omitempty"`
	Width   float64           `json:"width,omitempty"`
}

func (a Annotation) IsRegion() bool {
	return a.End.IsValue()
}

// Region creates a shaded range overlay.
func Region(start, end float64, label, color string) Annotation {
	return Annotation{
		Start: start, End: null.From(end), Label: label, Color: color, Opacity: 0.3,
	}
}

// Marker creates a dashed vertical line overlay.
func Marker(x float64, label, color string) Annotation {
	return Annotation{Start: x, Label: label, Color: color, Dashed: true, Width: 3}
}

// SeriesByName returns the series with the given name.
func (d Description) SeriesByName(name string) (Series, bool) {
	for _, s := range d.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}
