package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/telemetry"
)

var telemetryColumns = []string{"time", "distance", "speed", "throttle", "brake", "gear", "rpm"}

func ReadTelemetryFile(path, driver string, lap int) (*model.Telemetry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s lap %d", ErrTelemetryNotFound, driver, lap)
		}
		return nil, err
	}
	defer f.Close()
	return ReadTelemetry(f, driver, lap)
}

// ReadTelemetry parses a telemetry csv. If the distance column is empty on
// every row the distance is accumulated from speed and time.
func ReadTelemetry(r io.Reader, driver string, lap int) (*model.Telemetry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range telemetryColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	samples := []model.Sample{}
	missingDistance := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		s, hasDistance, err := parseSample(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !hasDistance {
			missingDistance++
		}
		samples = append(samples, s)
	}
	switch missingDistance {
	case 0:
	case len(samples):
		if samples, err = telemetry.AddDistance(samples); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("distance missing on %d of %d rows", missingDistance, len(samples))
	}

	t := &model.Telemetry{Driver: driver, LapNumber: lap, Samples: samples}
	if err := telemetry.Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func parseSample(rec []string, idx map[string]int) (s model.Sample, hasDistance bool, err error) {
	field := func(name string) string { return strings.TrimSpace(rec[idx[name]]) }
	secs, err := parseFinite(field("time"))
	if err != nil {
		return s, false, fmt.Errorf("time: %w", err)
	}
	s.Time = secondsToDuration(secs)
	if d := field("distance"); d != "" {
		if s.Distance, err = strconv.ParseFloat(d, 64); err != nil {
			return s, false, fmt.Errorf("distance: %w", err)
		}
		hasDistance = true
	}
	if s.Speed, err = strconv.ParseFloat(field("speed"), 64); err != nil {
		return s, false, fmt.Errorf("speed: %w", err)
	}
	if s.Throttle, err = strconv.ParseFloat(field("throttle"), 64); err != nil {
		return s, false, fmt.Errorf("throttle: %w", err)
	}
	if s.Brake, err = parseBrake(field("brake")); err != nil {
		return s, false, err
	}
	if s.Gear, err = strconv.Atoi(field("gear")); err != nil {
		return s, false, fmt.Errorf("gear: %w", err)
	}
	if s.RPM, err = parseInt(field("rpm")); err != nil {
		return s, false, fmt.Errorf("rpm: %w", err)
	}
	return s, hasDistance, nil
}

// brake is recorded as bool or as 0/100
func parseBrake(s string) (bool, error) {
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return false, fmt.Errorf("brake: invalid value %q", s)
	}
	return v > 0, nil
}

func parseInt(s string) (int, error) {
	v, err := parseFinite(s)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// parseFinite is used for values converted to durations and integers
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}
