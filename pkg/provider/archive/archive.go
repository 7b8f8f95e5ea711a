// Package archive reads recorded sessions from a local directory tree.
//
// Layout:
//
//	<root>/<year>/<event-slug>/<session>/session.json
//	<root>/<year>/<event-slug>/<session>/telemetry/<DRIVER>/<lap>.csv
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/opt/null"
	"golang.org/x/mod/semver"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
)

const (
	SessionFile      = "session.json"
	TelemetryDir     = "telemetry"
	MinFormatVersion = "v1.0.0"
)

var (
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrTelemetryNotFound = errors.New("telemetry not found")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
)

type (
	sessionDoc struct {
		Format string      `json:"format"`
		Laps   []lapRecord `json:"laps"`
	}
	lapRecord struct {
		Driver   string  `json:"driver"`
		Lap      int     `json:"lap"`
		LapTime  *string `json:"lapTime"`
		Position *int    `json:"position"`
		Compound string  `json:"compound,omitempty"`
	}
)

type Option func(*Provider)

func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.l = l }
}

type Provider struct {
	root string
	l    *log.Logger
}

var _ provider.Provider = (*Provider)(nil)

func New(root string, opts ...Option) *Provider {
	ret := &Provider{root: root, l: log.Default().Named("provider.archive")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SessionDir returns the directory of a recorded session.
func SessionDir(root string, key model.SessionKey) string {
	return filepath.Join(root, strconv.Itoa(key.Year), key.EventSlug(), string(key.Type))
}

func (p *Provider) Load(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	dir := SessionDir(p.root, key)
	p.l.Debug("loading session", log.String("dir", dir))
	laps, err := readSession(filepath.Join(dir, SessionFile))
	if err != nil {
		return nil, provider.NewDataLoadError(key, err)
	}
	fetcher := model.TelemetryFetcherFunc(
		func(ctx context.Context, driver string, lap int) (*model.Telemetry, error) {
			t, err := ReadTelemetryFile(TelemetryPath(dir, driver, lap), driver, lap)
			if err != nil {
				return nil, provider.NewDataLoadError(key, err)
			}
			return t, nil
		})
	return model.NewSession(key, laps, fetcher), nil
}

func TelemetryPath(sessionDir, driver string, lap int) string {
	return filepath.Join(sessionDir, TelemetryDir, strings.ToUpper(driver), fmt.Sprintf("%d.csv", lap))
}

func readSession(path string) ([]model.Lap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, err
	}
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := checkFormat(doc.Format); err != nil {
		return nil, err
	}
	laps := make([]model.Lap, 0, len(doc.Laps))
	for _, r := range doc.Laps {
		l := model.Lap{
			Driver:    r.Driver,
			LapNumber: r.Lap,
			Position:  null.FromPtr(r.Position),
			Compound:  r.Compound,
		}
		if r.LapTime != nil {
			d, err := ParseLapTime(*r.LapTime)
			if err != nil {
				return nil, fmt.Errorf("%s lap %d: %w", r.Driver, r.Lap, err)
			}
			l.LapTime = null.From(d)
		}
		laps = append(laps, l)
	}
	if err := model.ValidateLapTable(laps); err != nil {
		return nil, err
	}
	return laps, nil
}

func checkFormat(format string) error {
	v := format
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: invalid version %q", ErrUnsupportedFormat, format)
	}
	if semver.Compare(v, MinFormatVersion) < 0 {
		return fmt.Errorf("%w: %s is older than %s", ErrUnsupportedFormat, format, MinFormatVersion)
	}
	return nil
}

// ParseLapTime accepts "m:ss.fff", Go durations like "1m25.5s" and plain
// seconds.
func ParseLapTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty lap time")
	}
	if mins, secs, found := strings.Cut(s, ":"); found {
		m, err := strconv.Atoi(mins)
		if err != nil {
			return 0, fmt.Errorf("invalid lap time %q", s)
		}
		sec, err := strconv.ParseFloat(secs, 64)
		if err != nil || sec < 0 || sec >= 60 || m < 0 {
			return 0, fmt.Errorf("invalid lap time %q", s)
		}
		return time.Duration(m)*time.Minute + model.LapDuration(sec), nil
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return model.LapDuration(sec), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid lap time %q", s)
	}
	return d.Round(time.Millisecond), nil
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec*1000+0.5) * time.Millisecond
}
