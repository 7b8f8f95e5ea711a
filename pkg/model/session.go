package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type SessionType string

const (
	Practice1  SessionType = "Practice1"
	Practice2  SessionType = "Practice2"
	Practice3  SessionType = "Practice3"
	Qualifying SessionType = "Qualifying"
	Sprint     SessionType = "Sprint"
	Race       SessionType = "Race"
)

var sessionTypeAliases = map[string]SessionType{
	"fp1":        Practice1,
	"practice1":  Practice1,
	"practice 1": Practice1,
	"fp2":        Practice2,
	"practice2":  Practice2,
	"practice 2": Practice2,
	"fp3":        Practice3,
	"practice3":  Practice3,
	"practice 3": Practice3,
	"q":          Qualifying,
	"qualifying": Qualifying,
	"s":          Sprint,
	"sprint":     Sprint,
	"r":          Race,
	"race":       Race,
}

func ParseSessionType(s string) (SessionType, error) {
	if t, ok := sessionTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// SessionKey identifies one historical session.
type SessionKey struct {
	Year  int
	Event string
	Type  SessionType
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Year, k.Event, k.Type)
}

// EventSlug returns the event name in lower case with spaces replaced by dashes.
func (k SessionKey) EventSlug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k.Event)), " ", "-")
}

type TelemetryFetcher interface {
	FetchTelemetry(ctx context.Context, driver string, lap int) (*Telemetry, error)
}

type TelemetryFetcherFunc func(ctx context.Context, driver string, lap int) (*Telemetry, error)

func (f TelemetryFetcherFunc) FetchTelemetry(
	ctx context.Context, driver string, lap int,
) (*Telemetry, error) {
	return f(ctx, driver, lap)
}

type telemetryKey struct {
	driver string
	lap    int
}

// Session is bound to one historical session. The lap table is read-only,
// telemetry is fetched lazily and kept once fetched.
type Session struct {
	Key     SessionKey
	laps    []Lap
	fetcher TelemetryFetcher

	mu        sync.Mutex
	telemetry map[telemetryKey]*Telemetry
}

func NewSession(key SessionKey, laps []Lap, fetcher TelemetryFetcher) *Session {
	own := make([]Lap, len(laps))
	copy(own, laps)
	return &Session{
		Key:       key,
		laps:      own,
		fetcher:   fetcher,
		telemetry: make(map[telemetryKey]*Telemetry),
	}
}

// Laps returns a copy of the lap table.
func (s *Session) Laps() []Lap {
	ret := make([]Lap, len(s.laps))
	copy(ret, s.laps)
	return ret
}

// Telemetry returns the telemetry series of the given lap.
func (s *Session) Telemetry(ctx context.Context, lap Lap) (*Telemetry, error) {
	k := telemetryKey{driver: lap.Driver, lap: lap.LapNumber}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.telemetry[k]; ok {
		return t, nil
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("no telemetry available for %s", s.Key)
	}
	t, err := s.fetcher.FetchTelemetry(ctx, lap.Driver, lap.LapNumber)
	if err != nil {
		return nil, err
	}
	s.telemetry[k] = t
	return t, nil
}
