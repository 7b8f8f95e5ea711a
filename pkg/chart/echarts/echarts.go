// Package echarts turns chart descriptions into go-echarts charts.
package echarts

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mpapenbr/racedash/pkg/chart"
)

const (
	DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
	DefaultTheme      = "dark"
	stackTotal        = "total"
)

// Chart is what Build returns: a go-echarts chart that can be rendered on
// its own or added to a page.
type Chart interface {
	components.Charter
	render.Renderer
}

type Renderer struct {
	theme      string
	assetsHost string
	width      string
}

type Option func(r *Renderer)

func WithTheme(theme string) Option {
	return func(r *Renderer) { r.theme = theme }
}

func WithAssetsHost(host string) Option {
	return func(r *Renderer) {
		if host != "" {
			r.assetsHost = host
		}
	}
}

func WithWidth(width string) Option {
	return func(r *Renderer) { r.width = width }
}

func New(options ...Option) *Renderer {
	r := &Renderer{theme: DefaultTheme, assetsHost: DefaultAssetsHost, width: "100%"}
	for _, o := range options {
		o(r)
	}
	return r
}

// Scripts returns the script urls a page embedding snippets has to load.
func (r *Renderer) Scripts() []string {
	return []string{r.assetsHost + opts.EchartsJS}
}

// Build maps a description to a line or a horizontal bar chart.
func (r *Renderer) Build(d chart.Description) (Chart, error) {
	switch d.Kind {
	case chart.KindLine:
		return r.line(d), nil
	case chart.KindBar:
		return r.bar(d)
	default:
		return nil, fmt.Errorf("unsupported chart kind %q", d.Kind)
	}
}

// Snippet renders element and script of a chart for embedding in a page.
func (r *Renderer) Snippet(d chart.Description) (render.ChartSnippet, error) {
	c, err := r.Build(d)
	if err != nil {
		return render.ChartSnippet{}, err
	}
	return c.RenderSnippet(), nil
}

// Page writes a standalone HTML page containing all given charts.
func (r *Renderer) Page(w io.Writer, title string, descs ...chart.Description) error {
	page := components.NewPage()
	page.SetPageTitle(title)
	page.SetAssetsHost(r.assetsHost)
	for _, d := range descs {
		c, err := r.Build(d)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}
	return page.Render(w)
}

// chartID is used as part of a javascript identifier by go-echarts
func chartID() string {
	return "chart_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (r *Renderer) globalOpts(d chart.Description) []charts.GlobalOpts {
	tooltip := opts.Tooltip{Show: opts.Bool(true)}
	if d.HoverUnified {
		tooltip.Trigger = "axis"
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			ChartID:    chartID(),
			Width:      r.width,
			Height:     fmt.Sprintf("%dpx", d.Height),
			Theme:      r.theme,
			PageTitle:  d.Title,
			AssetsHost: r.assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: d.Title}),
		charts.WithTooltipOpts(tooltip),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(d.ShowLegend), Top: "bottom"}),
	}
}

func (r *Renderer) line(d chart.Description) *charts.Line {
	line := charts.NewLine()
	gOpts := append(r.globalOpts(d),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value", Name: d.XAxisTitle, NameLocation: "middle", NameGap: 30,
			Scale: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value", Name: d.YAxisTitle, NameLocation: "middle", NameGap: 45,
			Scale: opts.Bool(true), Inverse: opts.Bool(d.YInverted),
		}),
	)
	line.SetGlobalOptions(gOpts...)

	for i, s := range d.Series {
		sOpts := []charts.SeriesOpts{
			charts.WithLineStyleOpts(opts.LineStyle{Color: s.Color, Width: float32(s.Width)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
			charts.WithLineChartOpts(lineChartOpts(s)),
		}
		// overlays go to the first series, they are drawn once per chart
		if i == 0 {
			sOpts = append(sOpts, annotationOpts(d.Annotations)...)
		}
		line.AddSeries(s.Name, lineData(s), sOpts...)
	}
	return line
}

func lineChartOpts(s chart.Series) opts.LineChart {
	if s.Mode == chart.ModeLinesMarkers {
		return opts.LineChart{Symbol: "circle", SymbolSize: s.MarkerSize, ShowSymbol: opts.Bool(true)}
	}
	return opts.LineChart{ShowSymbol: opts.Bool(false)}
}

func lineData(s chart.Series) []opts.LineData {
	n := min(len(s.X), len(s.Y))
	ret := make([]opts.LineData, n)
	for i := 0; i < n; i++ {
		ret[i] = opts.LineData{Value: []float64{s.X[i], s.Y[i]}}
	}
	return ret
}

func annotationOpts(annotations []chart.Annotation) []charts.SeriesOpts {
	if len(annotations) == 0 {
		return nil
	}
	regions, lines := lo.FilterReject(annotations, func(a chart.Annotation, _ int) bool {
		return a.IsRegion()
	})
	ret := []charts.SeriesOpts{}
	for _, a := range regions {
		ret = append(ret, charts.WithMarkAreaNameCoordItemOpts(opts.MarkAreaNameCoordItem{
			Name:        a.Label,
			Coordinate0: []interface{}{a.Start, "min"},
			Coordinate1: []interface{}{a.End.MustGet(), "max"},
			Label:       &opts.Label{Show: opts.Bool(true), Position: "insideTop"},
			ItemStyle:   &opts.ItemStyle{Color: a.Color, Opacity: opts.Float(float32(a.Opacity))},
		}))
	}
	for _, a := range lines {
		ret = append(ret, charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{
			Name:  a.Label,
			XAxis: a.Start,
		}))
	}
	if len(lines) > 0 {
		// go-echarts keeps one style per series, the first vertical line defines it
		first := lines[0]
		style := opts.LineStyle{Color: first.Color, Width: float32(first.Width)}
		if first.Dashed {
			style.Type = "dashed"
		}
		ret = append(ret, charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Symbol:    []string{"none", "none"},
			Label:     &opts.Label{Show: opts.Bool(true), Formatter: "{b}"},
			LineStyle: &style,
		}))
	}
	return ret
}

// bar draws stints as horizontal bars. A transparent base series shifts
// the visible duration series to the stint start.
func (r *Renderer) bar(d chart.Description) (*charts.Bar, error) {
	rows := len(d.Categories)
	base := make([]opts.BarData, rows)
	duration := make([]opts.BarData, rows)
	for _, s := range d.Series {
		if s.Row < 0 || s.Row >= rows {
			return nil, fmt.Errorf("series %q: row %d out of range", s.Name, s.Row)
		}
		if len(s.X) == 0 {
			return nil, fmt.Errorf("series %q: no bar length", s.Name)
		}
		start := 0.0
		if len(s.Base) > 0 {
			start = s.Base[0]
		}
		base[s.Row] = opts.BarData{
			Name:      s.Name,
			Value:     start,
			ItemStyle: &opts.ItemStyle{Color: "transparent"},
			Tooltip:   &opts.Tooltip{Show: opts.Bool(false)},
		}
		duration[s.Row] = opts.BarData{
			Name:  s.Name,
			Value: s.X[0],
			ItemStyle: &opts.ItemStyle{
				Color: s.Color, BorderColor: s.BorderColor, BorderWidth: 1,
			},
			Tooltip: &opts.Tooltip{Show: opts.Bool(true), Formatter: types.FuncStr(s.Tooltip)},
		}
	}

	bar := charts.NewBar()
	gOpts := append(r.globalOpts(d),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value", Name: d.XAxisTitle, NameLocation: "middle", NameGap: 30,
		}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: d.YAxisTitle, Inverse: opts.Bool(true)}),
	)
	bar.SetGlobalOptions(gOpts...)
	bar.SetXAxis(d.Categories).
		AddSeries("start", base, charts.WithBarChartOpts(opts.BarChart{Stack: stackTotal})).
		AddSeries("stint", duration, charts.WithBarChartOpts(opts.BarChart{Stack: stackTotal})).
		XYReversal()
	return bar, nil
}
