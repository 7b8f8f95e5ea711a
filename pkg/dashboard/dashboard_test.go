package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/mpapenbr/racedash/pkg/chart"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/session"
	"github.com/mpapenbr/racedash/pkg/story"
	"github.com/mpapenbr/racedash/testsupport/fixtures"
)

func setup(t *testing.T, laps []model.Lap) (*Dispatcher, *fixtures.Provider) {
	t.Helper()
	p := &fixtures.Provider{Laps: laps, Fetcher: &fixtures.Fetcher{}}
	d, err := NewDispatcher(session.NewCache(p), story.Default())
	require.NoError(t, err)
	return d, p
}

func kinds(v *View) []PanelKind {
	ret := make([]PanelKind, len(v.Panels))
	for i, p := range v.Panels {
		ret[i] = p.Kind
	}
	return ret
}

func charts(v *View) []*chart.Description {
	ret := []*chart.Description{}
	for _, p := range v.Panels {
		if p.Kind == KindChart {
			ret = append(ret, p.Chart)
		}
	}
	return ret
}

func TestParseSection(t *testing.T) {
	tests := []struct {
		in      string
		want    Section
		wantErr bool
	}{
		{in: "overview", want: Overview},
		{in: "Telemetry Analysis", want: Telemetry},
		{in: " race-pace ", want: RacePace},
		{in: "strategy analysis", want: Strategy},
		{in: "final-moments", want: FinalMoments},
		{in: "pitstops", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSection(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSection)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSections(t *testing.T) {
	titles := []string{}
	for _, s := range Sections() {
		titles = append(titles, s.Title())
	}
	assert.Equal(t, []string{
		"Overview", "Telemetry Analysis", "Race Pace", "Strategy Analysis", "Final Moments",
	}, titles)
}

func TestDispatch_unknownSection(t *testing.T) {
	d, _ := setup(t, nil)
	_, err := d.Dispatch(context.Background(), Section("pitstops"))
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestDispatch_overviewAndStrategyDoNotLoad(t *testing.T) {
	d, p := setup(t, nil)
	p.Err = errors.New("offline")

	v, err := d.Dispatch(context.Background(), Overview)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, []PanelKind{KindMetrics, KindText}, kinds(v))
	assert.Len(t, v.Panels[0].Metrics, 3)

	v, err = d.Dispatch(context.Background(), Strategy)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, []PanelKind{KindChart, KindText, KindText, KindInsight}, kinds(v))
	assert.Len(t, v.Panels[0].Chart.Series, 5)
	assert.Equal(t, "HAM", v.Panels[1].Title)
	assert.Equal(t, "VER", v.Panels[2].Title)

	assert.Equal(t, 0, p.LoadCount())
}

func TestDispatch_telemetry(t *testing.T) {
	d, p := setup(t, fixtures.RaceLaps(58, "VER", "HAM"))

	v, err := d.Dispatch(context.Background(), Telemetry)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, "Fastest Lap Telemetry Comparison", v.Heading)
	require.Len(t, v.Panels, 10)
	for i := 0; i < 10; i += 2 {
		assert.Equal(t, KindChart, v.Panels[i].Kind)
		assert.Equal(t, KindInsight, v.Panels[i+1].Kind)
	}
	assert.ElementsMatch(t, []string{"VER/1", "HAM/1"}, p.Fetcher.Requests)

	// the session is kept, telemetry is not fetched again
	_, err = d.Dispatch(context.Background(), Telemetry)
	require.NoError(t, err)
	assert.Equal(t, 1, p.LoadCount())
	assert.Len(t, p.Fetcher.Requests, 2)
}

func TestDispatch_telemetryMissingDriver(t *testing.T) {
	d, _ := setup(t, fixtures.RaceLaps(58, "VER"))

	v, err := d.Dispatch(context.Background(), Telemetry)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, []PanelKind{KindWarning}, kinds(v))
}

func TestDispatch_telemetryFetchFails(t *testing.T) {
	d, p := setup(t, fixtures.RaceLaps(58, "VER", "HAM"))
	p.Fetcher.Fail = map[string]error{
		"HAM/1": provider.NewDataLoadError(fixtures.AbuDhabi2021, errors.New("timeout")),
	}

	v, err := d.Dispatch(context.Background(), Telemetry)
	require.NoError(t, err)
	assert.Equal(t, MsgLoadFailed, v.Error)
	assert.Empty(t, v.Panels)
}

func TestDispatch_loadFailureIsRetried(t *testing.T) {
	d, p := setup(t, fixtures.RaceLaps(58, "VER", "HAM"))
	p.Err = errors.New("offline")

	for _, s := range []Section{Telemetry, RacePace, FinalMoments} {
		v, err := d.Dispatch(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, MsgLoadFailed, v.Error, s)
		assert.Empty(t, v.Panels, s)
	}

	p.Err = nil
	v, err := d.Dispatch(context.Background(), RacePace)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, 4, p.LoadCount())
}

func TestDispatch_racePace(t *testing.T) {
	d, _ := setup(t, fixtures.RaceLaps(58, "VER", "HAM"))

	v, err := d.Dispatch(context.Background(), RacePace)
	require.NoError(t, err)
	assert.Equal(t, []PanelKind{KindChart, KindText, KindChart}, kinds(v))

	c := charts(v)
	assert.Equal(t, "lap-times", c[0].ID)
	assert.Len(t, c[0].Annotations, 2)
	assert.Equal(t, 58, c[0].Series[0].Len())
	assert.Equal(t, "Final 10 Laps - The Championship Decider", c[1].Title)
	for _, s := range c[1].Series {
		assert.Equal(t, 10, s.Len())
	}
}

func TestDispatch_racePaceNoFinalLaps(t *testing.T) {
	d, _ := setup(t, fixtures.RaceLaps(40, "VER", "HAM"))

	v, err := d.Dispatch(context.Background(), RacePace)
	require.NoError(t, err)
	assert.Equal(t, []PanelKind{KindChart, KindText, KindWarning}, kinds(v))
}

func TestDispatch_finalMoments(t *testing.T) {
	d, p := setup(t, fixtures.RaceLaps(58, "VER", "HAM"))

	v, err := d.Dispatch(context.Background(), FinalMoments)
	require.NoError(t, err)
	assert.Equal(t, []PanelKind{KindChart, KindText, KindChart, KindText}, kinds(v))
	assert.Equal(t, "Lap 58 - The Overtake", v.Panels[1].Title)

	c := charts(v)
	assert.True(t, c[0].YInverted)
	require.Len(t, c[0].Annotations, 1)
	assert.Equal(t, "Final Lap Overtake", c[0].Annotations[0].Label)
	assert.Equal(t, "Final Lap Speed Comparison - The Championship Moment", c[1].Title)
	assert.ElementsMatch(t, []string{"VER/58", "HAM/58"}, p.Fetcher.Requests)
}

func TestDispatch_finalLapTelemetryMissing(t *testing.T) {
	d, p := setup(t, fixtures.RaceLaps(58, "VER", "HAM"))
	p.Fetcher.Fail = map[string]error{"VER/58": errors.New("no car data")}

	v, err := d.Dispatch(context.Background(), FinalMoments)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, []PanelKind{KindChart, KindText, KindWarning, KindText}, kinds(v))
	assert.Equal(t, MsgFinalLapMissing, v.Panels[2].Message)
}

func TestDispatch_unknownCompound(t *testing.T) {
	st := *story.Default()
	st.Stints = append([]model.Stint{}, st.Stints...)
	st.Stints[4].Compound = model.Intermediate
	d, err := NewDispatcher(session.NewCache(&fixtures.Provider{}), &st)
	require.NoError(t, err)

	v, err := d.Dispatch(context.Background(), Strategy)
	require.NoError(t, err)
	assert.Empty(t, v.Error)
	assert.Equal(t, []PanelKind{KindError, KindText, KindText, KindInsight}, kinds(v))
	assert.Contains(t, v.Panels[0].Message, "Intermediate")
}

// failingMeter refuses to create instruments.
type failingMeter struct {
	noop.Meter
}

func (failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument rejected")
}

func TestNewDispatcher_meterError(t *testing.T) {
	d, err := NewDispatcher(session.NewCache(&fixtures.Provider{}), story.Default(),
		WithMeter(failingMeter{}))
	assert.EqualError(t, err, "instrument rejected")
	assert.Nil(t, d)
}
