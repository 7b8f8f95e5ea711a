// Package story holds the fixed reference data narrating one race: the
// drivers, overlays, texts and the tyre stint table.
package story

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racedash/pkg/chart"
	"github.com/mpapenbr/racedash/pkg/model"
)

//go:embed abu-dhabi-2021.yaml
var defaultStory []byte

type (
	Story struct {
		Title         string            `yaml:"title" json:"title"`
		Subtitle      string            `yaml:"subtitle" json:"subtitle"`
		Date          string            `yaml:"date" json:"date"`
		Footer        string            `yaml:"footer" json:"footer"`
		Session       SessionRef        `yaml:"session" json:"session"`
		Drivers       []Driver          `yaml:"drivers" json:"drivers"`
		FinalLaps     FinalLaps         `yaml:"finalLaps" json:"finalLaps"`
		DecisiveLap   int               `yaml:"decisiveLap" json:"decisiveLap"`
		DecisiveLabel string            `yaml:"decisiveLabel" json:"decisiveLabel"`
		Overlays      []Overlay         `yaml:"overlays" json:"overlays"`
		Metrics       []Metric          `yaml:"metrics" json:"metrics"`
		Narrative     Narrative         `yaml:"narrative" json:"narrative"`
		Insights      map[string]string `yaml:"insights" json:"insights"`
		Stints        []model.Stint     `yaml:"stints" json:"stints"`
	}
	SessionRef struct {
		Year  int    `yaml:"year" json:"year"`
		Event string `yaml:"event" json:"event"`
		Type  string `yaml:"type" json:"type"`
	}
	Driver struct {
		chart.Competitor `yaml:",inline"`
		FullName         string `yaml:"fullName" json:"fullName"`
	}
	FinalLaps struct {
		From int `yaml:"from" json:"from"`
	}
	Overlay struct {
		Start int    `yaml:"start" json:"start"`
		End   *int   `yaml:"end" json:"end,omitempty"`
		Label string `yaml:"label" json:"label"`
		Color string `yaml:"color" json:"color"`
	}
	Metric struct {
		Label string `yaml:"label" json:"label"`
		Value string `yaml:"value" json:"value"`
		Delta string `yaml:"delta" json:"delta"`
	}
	Narrative struct {
		Overview           []string            `yaml:"overview" json:"overview"`
		RacePace           []string            `yaml:"racePace" json:"racePace"`
		Strategy           map[string][]string `yaml:"strategy" json:"strategy"`
		StrategyConclusion string              `yaml:"strategyConclusion" json:"strategyConclusion"`
		FinalLapHeading    string              `yaml:"finalLapHeading" json:"finalLapHeading"`
		FinalMoments       []string            `yaml:"finalMoments" json:"finalMoments"`
	}
)

// ValidationError lists every problem found in a story.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid story: " + strings.Join(e.Problems, "; ")
}

func Default() *Story {
	s, err := Load(bytes.NewReader(defaultStory))
	if err != nil {
		panic(fmt.Sprintf("embedded story: %v", err))
	}
	return s
}

func LoadFile(path string) (*Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Load(r io.Reader) (*Story, error) {
	var s Story
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ValidationError{Problems: []string{"empty document"}}
		}
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the driver list and that the stints of each driver
// partition [0, last lap] without gaps or overlaps.
func (s *Story) Validate() error {
	var problems []string
	if len(s.Drivers) != 2 {
		problems = append(problems, fmt.Sprintf("expected 2 drivers, got %d", len(s.Drivers)))
	}
	if _, err := s.Key(); err != nil {
		problems = append(problems, err.Error())
	}
	known := map[string]bool{}
	for _, d := range s.Drivers {
		if d.Code == "" {
			problems = append(problems, "driver without code")
		}
		known[d.Code] = true
	}

	lastLap := 0
	byDriver := map[string][]model.Stint{}
	for _, st := range s.Stints {
		if !known[st.Driver] {
			problems = append(problems, fmt.Sprintf("stint of unknown driver %q", st.Driver))
		}
		if st.EndLap <= st.StartLap {
			problems = append(problems, fmt.Sprintf("%s %s stint: end %d not after start %d",
				st.Driver, st.Compound, st.EndLap, st.StartLap))
		}
		lastLap = max(lastLap, st.EndLap)
		byDriver[st.Driver] = append(byDriver[st.Driver], st)
	}
	drivers := make([]string, 0, len(byDriver))
	for d := range byDriver {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)
	for _, d := range drivers {
		stints := byDriver[d]
		sort.SliceStable(stints, func(i, j int) bool { return stints[i].StartLap < stints[j].StartLap })
		next := 0
		for _, st := range stints {
			if st.StartLap != next {
				problems = append(problems, fmt.Sprintf("%s: stint starts at lap %d, expected %d",
					d, st.StartLap, next))
			}
			next = st.EndLap
		}
		if next != lastLap {
			problems = append(problems, fmt.Sprintf("%s: stints end at lap %d, expected %d",
				d, next, lastLap))
		}
	}
	for _, o := range s.Overlays {
		if o.End != nil && *o.End < o.Start {
			problems = append(problems, fmt.Sprintf("overlay %q: end before start", o.Label))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (s *Story) Key() (model.SessionKey, error) {
	t, err := model.ParseSessionType(s.Session.Type)
	if err != nil {
		return model.SessionKey{}, err
	}
	return model.SessionKey{Year: s.Session.Year, Event: s.Session.Event, Type: t}, nil
}

// Competitors returns the two drivers of the story in order.
func (s *Story) Competitors() (a, b chart.Competitor) {
	return s.Drivers[0].Competitor, s.Drivers[1].Competitor
}

func (s *Story) Annotations() []chart.Annotation {
	ret := make([]chart.Annotation, 0, len(s.Overlays))
	for _, o := range s.Overlays {
		ret = append(ret, o.Annotation())
	}
	return ret
}

func (s *Story) DecisiveMarker() chart.Annotation {
	label := s.DecisiveLabel
	if label == "" {
		label = fmt.Sprintf("Lap %d", s.DecisiveLap)
	}
	return chart.LapMarker(s.DecisiveLap, label)
}

func (o Overlay) Annotation() chart.Annotation {
	if o.End != nil {
		return chart.Region(float64(o.Start), float64(*o.End), o.Label, o.Color)
	}
	return chart.Marker(float64(o.Start), o.Label, o.Color)
}

// Insight returns the insight text of a telemetry channel.
func (s *Story) Insight(ch chart.Channel) string {
	return s.Insights[string(ch)]
}
