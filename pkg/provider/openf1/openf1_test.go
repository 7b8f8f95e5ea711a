package openf1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
)

var (
	key   = model.SessionKey{Year: 2021, Event: "Abu Dhabi", Type: model.Race}
	start = time.Date(2021, 12, 12, 13, 3, 0, 0, time.UTC)
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	status   int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session_name") != "Race" {
			write(w, []any{})
			return
		}
		write(w, []map[string]any{
			{"session_key": 7, "session_name": "Race", "country_name": "United Arab Emirates",
				"location": "Abu Dhabi", "circuit_short_name": "Yas Marina Circuit", "year": 2021},
		})
	})
	mux.HandleFunc("/v1/drivers", func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]any{
			{"driver_number": 33, "name_acronym": "VER"},
			{"driver_number": 44, "name_acronym": "HAM"},
		})
	})
	mux.HandleFunc("/v1/laps", func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]any{
			{"driver_number": 44, "lap_number": 1, "lap_duration": 90.0, "date_start": start},
			{"driver_number": 44, "lap_number": 2, "lap_duration": 88.4996, "date_start": start.Add(90 * time.Second)},
			{"driver_number": 33, "lap_number": 1, "lap_duration": 91.0, "date_start": start},
			{"driver_number": 33, "lap_number": 2, "lap_duration": nil, "date_start": nil},
		})
	})
	mux.HandleFunc("/v1/position", func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]any{
			{"driver_number": 33, "date": start.Add(-time.Minute), "position": 1},
			{"driver_number": 44, "date": start.Add(-time.Minute), "position": 2},
			{"driver_number": 44, "date": start.Add(10 * time.Second), "position": 1},
			{"driver_number": 33, "date": start.Add(10 * time.Second), "position": 2},
		})
	})
	mux.HandleFunc("/v1/stints", func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]any{
			{"driver_number": 44, "compound": "MEDIUM", "lap_start": 1, "lap_end": 1},
			{"driver_number": 44, "compound": "HARD", "lap_start": 2, "lap_end": 2},
			{"driver_number": 33, "compound": "SOFT", "lap_start": 1, "lap_end": 2},
		})
	})
	mux.HandleFunc("/v1/car_data", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.RawQuery)
		f.mu.Unlock()
		write(w, []map[string]any{
			{"date": start.Add(time.Second), "speed": 36, "throttle": 100, "brake": 0, "n_gear": 3, "rpm": 9000},
			{"date": start, "speed": 36, "throttle": 100, "brake": 100, "n_gear": 3, "rpm": 8900},
		})
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func TestLoad(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	s, err := New(srv.URL, WithHTTPClient(srv.Client())).Load(context.Background(), key)
	require.NoError(t, err)

	laps := s.Laps()
	require.Len(t, laps, 4)
	// ordered by driver, then lap
	assert.Equal(t, "HAM", laps[0].Driver)
	assert.Equal(t, "Medium", laps[0].Compound)
	assert.Equal(t, "Hard", laps[1].Compound)
	assert.Equal(t, 1, laps[0].Position.MustGet())
	// rounded to the stored resolution
	assert.Equal(t, 88500*time.Millisecond, laps[1].LapTime.MustGet())
	assert.Equal(t, "VER", laps[2].Driver)
	assert.Equal(t, 2, laps[2].Position.MustGet())
	assert.True(t, laps[3].LapTime.IsNull())
	assert.True(t, laps[3].Position.IsNull())
	assert.Equal(t, "Soft", laps[3].Compound)

	tel, err := s.Telemetry(context.Background(), laps[0])
	require.NoError(t, err)
	require.Len(t, tel.Samples, 2)
	assert.True(t, tel.Samples[0].Brake)
	assert.InDelta(t, 10.0, tel.Samples[1].Distance, 1e-9)
	require.Len(t, api.requests, 1)
	assert.Contains(t, api.requests[0], "driver_number=44")
	assert.Contains(t, api.requests[0], "date>=")

	_, err = s.Telemetry(context.Background(), laps[3])
	assert.ErrorIs(t, err, ErrLapNotTimed)
	assert.True(t, provider.IsDataLoadError(err))
}

func TestLoad_errors(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()
	p := New(srv.URL, WithHTTPClient(srv.Client()))

	_, err := p.Load(context.Background(), model.SessionKey{Year: 2021, Event: "Monza", Type: model.Race})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, provider.IsDataLoadError(err))

	_, err = p.Load(context.Background(), model.SessionKey{Year: 2021, Event: "Abu Dhabi", Type: model.Qualifying})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	api.status = http.StatusServiceUnavailable
	_, err = p.Load(context.Background(), key)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestLoad_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	_, err := New(srv.URL).Load(context.Background(), key)
	assert.True(t, provider.IsDataLoadError(err))
}

func TestCompoundName(t *testing.T) {
	assert.Equal(t, "Soft", compoundName("SOFT"))
	assert.Equal(t, "Intermediate", compoundName("intermediate"))
	assert.Equal(t, "", compoundName(" "))
}
