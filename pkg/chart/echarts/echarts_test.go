package echarts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racedash/pkg/chart"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/selector"
	"github.com/mpapenbr/racedash/testsupport/fixtures"
)

func lapTimes() chart.Description {
	laps := fixtures.ScenarioLaps()
	return chart.LapTimes(
		chart.CompetitorLaps{
			Competitor: chart.Competitor{Code: "A", Color: "#E74C3C"},
			Laps:       selector.DriverLaps(laps, "A"),
		},
		chart.CompetitorLaps{
			Competitor: chart.Competitor{Code: "B", Color: "#3498DB"},
			Laps:       selector.DriverLaps(laps, "B"),
		},
		chart.SafetyCar(2, 3), chart.LapMarker(3, "Final Lap"))
}

func TestBuild_line(t *testing.T) {
	r := New(WithAssetsHost("http://localhost/assets/"))
	c, err := r.Build(lapTimes())
	require.NoError(t, err)

	content := string(c.RenderContent())
	assert.Contains(t, content, "Lap Time Evolution Throughout the Race")
	assert.Contains(t, content, "markArea")
	assert.Contains(t, content, "Safety Car")
	assert.Contains(t, content, "dashed")
	assert.Contains(t, content, `"trigger":"axis"`)
	assert.Contains(t, content, "http://localhost/assets/")
}

func TestBuild_bar(t *testing.T) {
	d, err := chart.TyreStrategy([]model.Stint{
		{Driver: "HAM", Compound: "Medium", StartLap: 0, EndLap: 14},
		{Driver: "HAM", Compound: "Hard", StartLap: 14, EndLap: 58},
	})
	require.NoError(t, err)

	snippet, err := New().Snippet(d)
	require.NoError(t, err)
	assert.Contains(t, snippet.Element, "chart_")
	assert.Contains(t, snippet.Script, "HAM - Medium")
	assert.Contains(t, snippet.Script, "transparent")
	assert.Contains(t, snippet.Script, "#ECF0F1")
}

func TestBuild_errors(t *testing.T) {
	r := New()
	_, err := r.Build(chart.Description{Kind: "pie"})
	assert.Error(t, err)

	_, err = r.Build(chart.Description{
		Kind:       chart.KindBar,
		Categories: []string{"a"},
		Series:     []chart.Series{{Name: "x", X: []float64{1}, Row: 3}},
	})
	assert.Error(t, err)
}

func TestChartIDsAreUnique(t *testing.T) {
	r := New()
	a, err := r.Snippet(lapTimes())
	require.NoError(t, err)
	b, err := r.Snippet(lapTimes())
	require.NoError(t, err)
	assert.NotEqual(t, a.Element, b.Element)
	assert.False(t, strings.Contains(chartID(), "-"))
}

func TestPage(t *testing.T) {
	var buf bytes.Buffer
	err := New().Page(&buf, "Race Pace", lapTimes())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<html")
	assert.Contains(t, buf.String(), "Race Pace")
}
