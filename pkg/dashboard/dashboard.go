// Package dashboard assembles the panels of a dashboard section from the
// story and the session data.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/chart"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/selector"
	"github.com/mpapenbr/racedash/pkg/story"
)

const (
	MsgLoadFailed      = "Failed to load race data. Please check your internet connection and try again."
	MsgFinalLapMissing = "Final lap telemetry data not available for detailed analysis."
)

type PanelKind string

const (
	KindChart   PanelKind = "chart"
	KindText    PanelKind = "text"
	KindInsight PanelKind = "insight"
	KindMetrics PanelKind = "metrics"
	KindWarning PanelKind = "warning"
	KindError   PanelKind = "error"
)

type (
	View struct {
		Section Section `json:"section"`
		Title   string  `json:"title"`
		Heading string  `json:"heading"`
		Panels  []Panel `json:"panels"`
		Error   string  `json:"error,omitempty"`
	}
	Panel struct {
		Kind    PanelKind          `json:"kind"`
		Title   string             `json:"title,omitempty"`
		Chart   *chart.Description `json:"chart,omitempty"`
		Text    []string           `json:"text,omitempty"`
		Metrics []story.Metric     `json:"metrics,omitempty"`
		Message string             `json:"message,omitempty"`
	}
)

// SessionSource hands out the session of a key.
type SessionSource interface {
	Get(ctx context.Context, key model.SessionKey) (*model.Session, error)
}

type Option func(*Dispatcher)

func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

func WithMeter(m metric.Meter) Option {
	return func(d *Dispatcher) { d.meter = m }
}

type Dispatcher struct {
	sessions SessionSource
	story    *story.Story
	key      model.SessionKey
	log      *log.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	panels   metric.Int64Counter
}

func NewDispatcher(sessions SessionSource, s *story.Story, opts ...Option) (*Dispatcher, error) {
	key, err := s.Key()
	if err != nil {
		return nil, err
	}
	ret := &Dispatcher{
		sessions: sessions,
		story:    s,
		key:      key,
		log:      log.Default().Named("dashboard"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("racedash")
	}
	if ret.meter == nil {
		ret.meter = otel.Meter("racedash")
	}
	if ret.panels, err = ret.meter.Int64Counter("dashboard_panels",
		metric.WithDescription("panels produced by kind")); err != nil {
		return nil, err
	}
	return ret, nil
}

func (d *Dispatcher) Story() *story.Story { return d.story }

func (d *Dispatcher) SessionKey() model.SessionKey { return d.key }

// Dispatch builds the view of section. Only an unknown section returns an
// error, data and chart failures are reported inside the view.
func (d *Dispatcher) Dispatch(ctx context.Context, section Section) (*View, error) {
	if !section.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(attribute.String("section", string(section))))
	defer span.End()

	view := &View{Section: section, Title: section.Title(), Heading: section.Heading()}

	var sess *model.Session
	if section.NeedsSession() {
		var err error
		if sess, err = d.sessions.Get(ctx, d.key); err != nil {
			return d.failed(ctx, view, err), nil
		}
	}

	var err error
	switch section {
	case Overview:
		d.overview(view)
	case Telemetry:
		err = d.telemetry(ctx, view, sess)
	case RacePace:
		d.racePace(view, sess)
	case Strategy:
		d.strategy(view)
	case FinalMoments:
		d.finalMoments(ctx, view, sess)
	}
	if err != nil {
		return d.failed(ctx, view, err), nil
	}
	for _, p := range view.Panels {
		d.panels.Add(ctx, 1, metric.WithAttributes(
			attribute.String("section", string(section)),
			attribute.String("kind", string(p.Kind))))
	}
	return view, nil
}

// failed replaces the panels of view by the load error message.
func (d *Dispatcher) failed(ctx context.Context, view *View, err error) *View {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "data load failed")
	d.log.Error("could not load race data",
		log.String("section", string(view.Section)),
		log.ErrorField(err))
	view.Panels = nil
	view.Error = MsgLoadFailed
	return view
}

func (d *Dispatcher) overview(view *View) {
	view.Panels = append(view.Panels,
		Panel{Kind: KindMetrics, Metrics: d.story.Metrics},
		Panel{Kind: KindText, Text: d.story.Narrative.Overview},
	)
}

// telemetry compares the fastest laps of both drivers channel by channel.
// A failing telemetry fetch is a data load failure of the whole view.
func (d *Dispatcher) telemetry(ctx context.Context, view *View, sess *model.Session) error {
	a, b := d.story.Competitors()
	ta, errA := selector.FastestLap(ctx, sess, a.Code)
	tb, errB := selector.FastestLap(ctx, sess, b.Code)
	for _, err := range []error{errA, errB} {
		if err == nil {
			continue
		}
		if provider.IsDataLoadError(err) {
			return err
		}
		view.Panels = append(view.Panels, d.problemPanel(view.Section, "Fastest Lap", err))
	}
	if errA != nil || errB != nil {
		return nil
	}
	ca := chart.CompetitorTelemetry{Competitor: a, Telemetry: ta}
	cb := chart.CompetitorTelemetry{Competitor: b, Telemetry: tb}
	for _, ch := range chart.Channels() {
		desc, err := chart.TelemetryComparison(ch, ca, cb)
		if err != nil {
			view.Panels = append(view.Panels, d.problemPanel(view.Section, string(ch), err))
			continue
		}
		view.Panels = append(view.Panels, chartPanel(desc))
		if insight := d.story.Insight(ch); insight != "" {
			view.Panels = append(view.Panels,
				Panel{Kind: KindInsight, Title: "Key Insight", Text: []string{insight}})
		}
	}
	return nil
}

func (d *Dispatcher) racePace(view *View, sess *model.Session) {
	a, b := d.competitorLaps(sess)
	if err := hasLaps(a, b); err != nil {
		view.Panels = append(view.Panels, d.problemPanel(view.Section, "Lap Times", err))
	} else {
		view.Panels = append(view.Panels, chartPanel(chart.LapTimes(a, b, d.story.Annotations()...)))
	}
	view.Panels = append(view.Panels, Panel{Kind: KindText, Text: d.story.Narrative.RacePace})

	from := d.story.FinalLaps.From
	err := hasLaps(
		chart.CompetitorLaps{Competitor: a.Competitor, Laps: selector.FromLap(a.Laps, from)},
		chart.CompetitorLaps{Competitor: b.Competitor, Laps: selector.FromLap(b.Laps, from)})
	if err != nil {
		view.Panels = append(view.Panels, d.problemPanel(view.Section, "Final Laps", err))
		return
	}
	view.Panels = append(view.Panels, chartPanel(chart.FinalLaps(a, b, from)))
}

func (d *Dispatcher) strategy(view *View) {
	desc, err := chart.TyreStrategy(d.story.Stints)
	if err != nil {
		view.Panels = append(view.Panels, d.problemPanel(view.Section, "Tyre Strategy", err))
	} else {
		view.Panels = append(view.Panels, chartPanel(desc))
	}
	for _, drv := range stintDrivers(d.story.Stints) {
		if text, ok := d.story.Narrative.Strategy[drv]; ok {
			view.Panels = append(view.Panels, Panel{Kind: KindText, Title: drv, Text: text})
		}
	}
	if c := d.story.Narrative.StrategyConclusion; c != "" {
		view.Panels = append(view.Panels, Panel{Kind: KindInsight, Text: []string{c}})
	}
}

func (d *Dispatcher) finalMoments(ctx context.Context, view *View, sess *model.Session) {
	a, b := d.competitorLaps(sess)
	if err := hasLaps(a, b); err != nil {
		view.Panels = append(view.Panels, d.problemPanel(view.Section, "Positions", err))
	} else {
		view.Panels = append(view.Panels,
			chartPanel(chart.Positions(a, b, d.story.DecisiveMarker())))
	}
	if h := d.story.Narrative.FinalLapHeading; h != "" {
		view.Panels = append(view.Panels, Panel{Kind: KindText, Title: h})
	}

	lap := d.story.DecisiveLap
	ta, err := selector.LapByNumber(ctx, sess, a.Code, lap)
	var tb *model.Telemetry
	if err == nil {
		tb, err = selector.LapByNumber(ctx, sess, b.Code, lap)
	}
	if err != nil {
		d.log.Warn("final lap telemetry not available",
			log.Int("lap", lap), log.ErrorField(err))
		view.Panels = append(view.Panels, Panel{Kind: KindWarning, Message: MsgFinalLapMissing})
	} else {
		view.Panels = append(view.Panels, chartPanel(chart.FinalLapSpeed(
			chart.CompetitorTelemetry{Competitor: a.Competitor, Telemetry: ta},
			chart.CompetitorTelemetry{Competitor: b.Competitor, Telemetry: tb})))
	}
	view.Panels = append(view.Panels, Panel{Kind: KindText, Text: d.story.Narrative.FinalMoments})
}

func (d *Dispatcher) competitorLaps(sess *model.Session) (a, b chart.CompetitorLaps) {
	ca, cb := d.story.Competitors()
	laps := sess.Laps()
	return chart.CompetitorLaps{Competitor: ca, Laps: selector.DriverLaps(laps, ca.Code)},
		chart.CompetitorLaps{Competitor: cb, Laps: selector.DriverLaps(laps, cb.Code)}
}

func hasLaps(cs ...chart.CompetitorLaps) error {
	for _, c := range cs {
		if len(c.Laps) == 0 {
			return &selector.NoLapsFoundError{Driver: c.Code}
		}
	}
	return nil
}

// problemPanel maps a failed chart to the panel shown instead. Selection
// errors are expected with incomplete data, everything else is a defect.
func (d *Dispatcher) problemPanel(section Section, what string, err error) Panel {
	if selector.IsSelectionError(err) {
		d.log.Warn("chart skipped",
			log.String("section", string(section)),
			log.String("chart", what),
			log.ErrorField(err))
		return Panel{Kind: KindWarning, Title: what, Message: fmt.Sprintf("%s: %v", what, err)}
	}
	if errors.Is(err, chart.ErrUnknownCompound) {
		d.log.Error("invalid stint table",
			log.String("section", string(section)),
			log.ErrorField(err))
	} else {
		d.log.Error("chart failed",
			log.String("section", string(section)),
			log.String("chart", what),
			log.ErrorField(err))
	}
	return Panel{Kind: KindError, Title: what, Message: err.Error()}
}

func chartPanel(desc chart.Description) Panel {
	return Panel{Kind: KindChart, Title: desc.Title, Chart: &desc}
}

func stintDrivers(stints []model.Stint) []string {
	return lo.Uniq(lo.Map(stints, func(s model.Stint, _ int) string { return s.Driver }))
}
