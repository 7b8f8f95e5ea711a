package openf1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/telemetry"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownDriver   = errors.New("unknown driver")
	ErrLapNotTimed     = errors.New("lap has no time window")
)

var sessionNames = map[model.SessionType]string{
	model.Practice1:  "Practice 1",
	model.Practice2:  "Practice 2",
	model.Practice3:  "Practice 3",
	model.Qualifying: "Qualifying",
	model.Sprint:     "Sprint",
	model.Race:       "Race",
}

type Option func(*Provider)

func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.hc = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.l = l }
}

type Provider struct {
	baseURL string
	hc      *http.Client
	l       *log.Logger
	c       *client
}

var _ provider.Provider = (*Provider)(nil)

func New(baseURL string, opts ...Option) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ret := &Provider{baseURL: baseURL, l: log.Default().Named("provider.openf1")}
	for _, opt := range opts {
		opt(ret)
	}
	ret.c = newClient(ret.baseURL, ret.hc, ret.l)
	return ret
}

// lapWindow is the time range of a lap, used to request its car data.
type lapWindow struct {
	from, to time.Time
}

type sessionData struct {
	sessionKey int
	numbers    map[string]int // acronym -> driver number
	windows    map[string]map[int]lapWindow
}

func (p *Provider) Load(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	sd, laps, err := p.load(ctx, key)
	if err != nil {
		return nil, provider.NewDataLoadError(key, err)
	}
	fetcher := model.TelemetryFetcherFunc(
		func(ctx context.Context, driver string, lap int) (*model.Telemetry, error) {
			t, err := p.fetchTelemetry(ctx, sd, driver, lap)
			if err != nil {
				return nil, provider.NewDataLoadError(key, err)
			}
			return t, nil
		})
	return model.NewSession(key, laps, fetcher), nil
}

func (p *Provider) load(ctx context.Context, key model.SessionKey) (*sessionData, []model.Lap, error) {
	s, err := p.findSession(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	q := url.Values{"session_key": {strconv.Itoa(s.SessionKey)}}
	drivers, err := get[apiDriver](ctx, p.c, "/v1/drivers", q)
	if err != nil {
		return nil, nil, err
	}
	apiLaps, err := get[apiLap](ctx, p.c, "/v1/laps", q)
	if err != nil {
		return nil, nil, err
	}
	positions, err := get[apiPosition](ctx, p.c, "/v1/position", q)
	if err != nil {
		return nil, nil, err
	}
	stints, err := get[apiStint](ctx, p.c, "/v1/stints", q)
	if err != nil {
		return nil, nil, err
	}

	acronyms := lo.SliceToMap(drivers, func(d apiDriver) (int, string) {
		return d.DriverNumber, d.Acronym
	})
	sd := &sessionData{
		sessionKey: s.SessionKey,
		numbers:    lo.Invert(acronyms),
		windows:    map[string]map[int]lapWindow{},
	}
	laps := buildLaps(apiLaps, positions, stints, acronyms, sd.windows)
	if err := model.ValidateLapTable(laps); err != nil {
		return nil, nil, err
	}
	p.l.Debug("session loaded",
		log.Int("sessionKey", s.SessionKey),
		log.Int("drivers", len(drivers)),
		log.Int("laps", len(laps)))
	return sd, laps, nil
}

func (p *Provider) findSession(ctx context.Context, key model.SessionKey) (*apiSession, error) {
	name, ok := sessionNames[key.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported session type %q", ErrSessionNotFound, key.Type)
	}
	sessions, err := get[apiSession](ctx, p.c, "/v1/sessions", url.Values{
		"year":         {strconv.Itoa(key.Year)},
		"session_name": {name},
	})
	if err != nil {
		return nil, err
	}
	match := func(v string) bool { return strings.EqualFold(strings.TrimSpace(v), key.Event) }
	s, found := lo.Find(sessions, func(s apiSession) bool {
		return match(s.CountryName) || match(s.Location) || match(s.CircuitName)
	})
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	return &s, nil
}

// buildLaps converts the api rows into the lap table. The position of a lap
// is the last reported position at or before the end of that lap.
func buildLaps(
	apiLaps []apiLap,
	positions []apiPosition,
	stints []apiStint,
	acronyms map[int]string,
	windows map[string]map[int]lapWindow,
) []model.Lap {
	posByDriver := lo.GroupBy(positions, func(p apiPosition) int { return p.DriverNumber })
	for _, list := range posByDriver {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}
	stintsByDriver := lo.GroupBy(stints, func(s apiStint) int { return s.DriverNumber })

	ret := make([]model.Lap, 0, len(apiLaps))
	for _, al := range apiLaps {
		driver, ok := acronyms[al.DriverNumber]
		if !ok {
			driver = strconv.Itoa(al.DriverNumber)
		}
		l := model.Lap{Driver: driver, LapNumber: al.LapNumber}
		if st, ok := lo.Find(stintsByDriver[al.DriverNumber], func(s apiStint) bool {
			return s.LapStart <= al.LapNumber && al.LapNumber <= s.LapEnd
		}); ok {
			l.Compound = compoundName(st.Compound)
		}
		if al.LapDuration != nil {
			d := model.LapDuration(*al.LapDuration)
			l.LapTime = null.From(d)
			if al.DateStart != nil {
				end := al.DateStart.Add(d)
				if windows[driver] == nil {
					windows[driver] = map[int]lapWindow{}
				}
				windows[driver][al.LapNumber] = lapWindow{from: *al.DateStart, to: end}
				if pos, ok := positionAt(posByDriver[al.DriverNumber], end); ok {
					l.Position = null.From(pos)
				}
			}
		}
		ret = append(ret, l)
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Driver != ret[j].Driver {
			return ret[i].Driver < ret[j].Driver
		}
		return ret[i].LapNumber < ret[j].LapNumber
	})
	return ret
}

func positionAt(list []apiPosition, t time.Time) (int, bool) {
	pos, found := 0, false
	for _, p := range list {
		if p.Date.After(t) {
			break
		}
		pos, found = p.Position, true
	}
	return pos, found
}

// "SOFT" -> "Soft"
func compoundName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p *Provider) fetchTelemetry(
	ctx context.Context, sd *sessionData, driver string, lap int,
) (*model.Telemetry, error) {
	number, ok := sd.numbers[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
	w, ok := sd.windows[driver][lap]
	if !ok {
		return nil, fmt.Errorf("%w: %s lap %d", ErrLapNotTimed, driver, lap)
	}
	data, err := get[apiCarData](ctx, p.c, "/v1/car_data", url.Values{
		"session_key":   {strconv.Itoa(sd.sessionKey)},
		"driver_number": {strconv.Itoa(number)},
	},
		"date>="+url.QueryEscape(w.from.UTC().Format(time.RFC3339Nano)),
		"date<"+url.QueryEscape(w.to.UTC().Format(time.RFC3339Nano)),
	)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].Date.Before(data[j].Date) })
	samples := lo.Map(data, func(c apiCarData, _ int) model.Sample {
		return model.Sample{
			Time:     c.Date.Sub(w.from),
			Speed:    c.Speed,
			Throttle: min(max(c.Throttle, 0), 100),
			Brake:    c.Brake > 0,
			Gear:     c.Gear,
			RPM:      c.RPM,
		}
	})
	samples, err = telemetry.AddDistance(samples)
	if err != nil {
		return nil, err
	}
	t := &model.Telemetry{Driver: driver, LapNumber: lap, Samples: samples}
	if err := telemetry.Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}
