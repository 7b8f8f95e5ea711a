// Package openf1 loads sessions from an OpenF1 compatible HTTP API.
package openf1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpapenbr/racedash/log"
)

const DefaultBaseURL = "https://api.openf1.org"

type (
	apiSession struct {
		SessionKey  int    `json:"session_key"`
		SessionName string `json:"session_name"`
		CountryName string `json:"country_name"`
		Location    string `json:"location"`
		CircuitName string `json:"circuit_short_name"`
		Year        int    `json:"year"`
	}
	apiDriver struct {
		DriverNumber int    `json:"driver_number"`
		Acronym      string `json:"name_acronym"`
	}
	apiLap struct {
		DriverNumber int        `json:"driver_number"`
		LapNumber    int        `json:"lap_number"`
		LapDuration  *float64   `json:"lap_duration"`
		DateStart    *time.Time `json:"date_start"`
	}
	apiPosition struct {
		DriverNumber int       `json:"driver_number"`
		Date         time.Time `json:"date"`
		Position     int       `json:"position"`
	}
	apiStint struct {
		DriverNumber int    `json:"driver_number"`
		Compound     string `json:"compound"`
		LapStart     int    `json:"lap_start"`
		LapEnd       int    `json:"lap_end"`
	}
	apiCarData struct {
		Date     time.Time `json:"date"`
		Speed    float64   `json:"speed"`
		Throttle float64   `json:"throttle"`
		Brake    float64   `json:"brake"`
		Gear     int       `json:"n_gear"`
		RPM      int       `json:"rpm"`
	}
)

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type client struct {
	baseURL string
	http    *http.Client
	l       *log.Logger
}

func newClient(baseURL string, hc *http.Client, l *log.Logger) *client {
	if hc == nil {
		hc = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &client{baseURL: strings.TrimSuffix(baseURL, "/"), http: hc, l: l}
}

// get decodes the JSON array returned by endpoint. Range filters like
// date>= are passed in raw since url.Values would escape the operator.
func get[T any](ctx context.Context, c *client, endpoint string, q url.Values, raw ...string) ([]T, error) {
	u := c.baseURL + endpoint + "?" + q.Encode()
	for _, r := range raw {
		u += "&" + r
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.l.Debug("request done",
		log.String("url", u),
		log.Int("status", resp.StatusCode),
		log.Duration("took", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	var ret []T
	if err := json.NewDecoder(resp.Body).Decode(&ret); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return ret, nil
}
