package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

type Section string

const (
	Overview     Section = "overview"
	Telemetry    Section = "telemetry"
	RacePace     Section = "race-pace"
	Strategy     Section = "strategy"
	FinalMoments Section = "final-moments"
)

var ErrUnknownSection = errors.New("unknown section")

type sectionInfo struct {
	title   string
	heading string
	session bool
}

var sections = map[Section]sectionInfo{
	Overview:     {title: "Overview", heading: "Race Overview"},
	Telemetry:    {title: "Telemetry Analysis", heading: "Fastest Lap Telemetry Comparison", session: true},
	RacePace:     {title: "Race Pace", heading: "Lap Time Evolution", session: true},
	Strategy:     {title: "Strategy Analysis", heading: "The Winning Strategy"},
	FinalMoments: {title: "Final Moments", heading: "The Championship Decider", session: true},
}

// Sections returns all sections in navigation order.
func Sections() []Section {
	return []Section{Overview, Telemetry, RacePace, Strategy, FinalMoments}
}

func (s Section) Title() string   { return sections[s].title }
func (s Section) Heading() string { return sections[s].heading }

// NeedsSession reports whether rendering s requires the session data.
func (s Section) NeedsSession() bool { return sections[s].session }

func (s Section) Valid() bool {
	_, ok := sections[s]
	return ok
}

// ParseSection accepts the slug or the display title of a section.
func ParseSection(v string) (Section, error) {
	v = strings.TrimSpace(v)
	for _, s := range Sections() {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, s.Title()) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, v)
}
