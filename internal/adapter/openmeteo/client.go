// Package openmeteo adapts the Open-Meteo daily precipitation API. Model
// output is authoritative here: a zero from a weather model is a trusted dry
// day, unlike the satellite archives earlier in the chain.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/floodcast/rainfall-resolver/internal/adapter/httpclient"
	"github.com/floodcast/rainfall-resolver/internal/domain"
)

const (
	// Coverage of the forecast endpoint relative to today: it serves up to
	// 92 past days alongside a forecast horizon of just over two weeks.
	maxPastDays   = 92
	maxFutureDays = 15

	// metersPerDegree approximates one degree of latitude.
	metersPerDegree = 111320.0
)

// Client queries daily precipitation sums, averaging five sample points
// around the location when an influence radius is set.
type Client struct {
	baseURL string
	http    *httpclient.Client
	logger  *slog.Logger
}

// New creates the Open-Meteo chain member.
func New(baseURL string, timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpclient.New("openmeteo", timeout, rps),
		logger:  logger,
	}
}

func (c *Client) Name() string { return "openmeteo" }

// SupportsWindow bounds requests to the model's archive depth and forecast
// horizon.
func (c *Client) SupportsWindow(w domain.DateWindow) bool {
	today := domain.Today()
	earliest := today.AddDate(0, 0, -maxPastDays)
	latest := today.AddDate(0, 0, maxFutureDays)
	return !w.Start.Before(earliest) && !w.End.After(latest)
}

// samplePoints returns the coordinates to query. A zero radius queries the
// point itself; otherwise the point plus the four diagonal corners at the
// radius, approximating an averaged bounding box.
func samplePoints(loc domain.Location) []domain.Location {
	if loc.RadiusMeters <= 0 {
		return []domain.Location{loc}
	}
	d := loc.RadiusMeters / metersPerDegree
	return []domain.Location{
		loc,
		{Lat: loc.Lat + d, Lon: loc.Lon + d},
		{Lat: loc.Lat + d, Lon: loc.Lon - d},
		{Lat: loc.Lat - d, Lon: loc.Lon + d},
		{Lat: loc.Lat - d, Lon: loc.Lon - d},
	}
}

type dailyResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Fetch sums daily precipitation over the window for each sample point and
// averages the point totals. Days the model has no value for yet are skipped
// and the observation is marked partial.
func (c *Client) Fetch(ctx context.Context, loc domain.Location, w domain.DateWindow) (domain.Observation, error) {
	points := samplePoints(loc)

	lats := make([]string, len(points))
	lons := make([]string, len(points))
	for i, p := range points {
		lats[i] = strconv.FormatFloat(p.Lat, 'f', 4, 64)
		lons[i] = strconv.FormatFloat(p.Lon, 'f', 4, 64)
	}

	buildRequest := func() (*http.Request, error) {
		params := url.Values{
			"latitude":   {strings.Join(lats, ",")},
			"longitude":  {strings.Join(lons, ",")},
			"daily":      {"precipitation_sum"},
			"start_date": {w.Start.Format(domain.DateLayout)},
			"end_date":   {w.End.Format(domain.DateLayout)},
			"timezone":   {"UTC"},
		}
		return http.NewRequest(http.MethodGet, c.baseURL+"/v1/forecast?"+params.Encode(), nil)
	}

	resp, err := c.http.Do(ctx, buildRequest)
	if err != nil {
		return domain.Observation{}, c.classify(err)
	}
	defer resp.Body.Close()

	results, err := decodeResults(resp, len(points))
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(c.Name(), domain.ErrorParse, err)
	}

	var sum float64
	counted := 0
	partial := false
	for _, r := range results {
		total, complete, ok := sumDaily(r, w.Days())
		if !ok {
			continue
		}
		sum += total
		counted++
		if !complete {
			partial = true
		}
	}
	if counted == 0 {
		return domain.Observation{}, domain.NoDataError(c.Name(), "no sample point returned values")
	}
	if counted < len(points) {
		partial = true
	}

	return domain.Observation{PrecipMM: sum / float64(counted), Partial: partial}, nil
}

// decodeResults handles both response shapes: a bare object for a single
// location and an array for a multi-location query.
func decodeResults(resp *http.Response, points int) ([]dailyResponse, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	if points == 1 {
		var single dailyResponse
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		return []dailyResponse{single}, nil
	}

	var many []dailyResponse
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	if len(many) != points {
		return nil, fmt.Errorf("expected %d location results, got %d", points, len(many))
	}
	return many, nil
}

// sumDaily totals one point's daily values. ok is false when the point has
// no usable days at all; complete is false when some days were null.
func sumDaily(r dailyResponse, expectedDays int) (total float64, complete, ok bool) {
	counted := 0
	for _, v := range r.Daily.PrecipitationSum {
		if v == nil {
			continue
		}
		total += *v
		counted++
	}
	if counted == 0 {
		return 0, false, false
	}
	return total, counted == expectedDays, true
}

func (c *Client) classify(err error) error {
	if se := httpclient.AsStatus(err); se != nil {
		switch {
		case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
			return domain.NewProviderError(c.Name(), domain.ErrorAuth, err)
		case se.Code == http.StatusBadRequest:
			// The API rejects out-of-range dates with a 400.
			return domain.NewProviderError(c.Name(), domain.ErrorNoCoverage, err)
		}
	}
	return domain.NewProviderError(c.Name(), domain.ErrorTransport, err)
}
