// Package tomorrowio adapts the Tomorrow.io timelines API, the last resort of
// the chain. Forecast model output, so zeros are trusted.
package tomorrowio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/floodcast/rainfall-resolver/internal/adapter/httpclient"
	"github.com/floodcast/rainfall-resolver/internal/domain"
)

const (
	// Timeline coverage relative to today on the free tier.
	maxPastDays   = 1
	maxFutureDays = 14
)

// Client queries daily precipitation totals from the timelines endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  *slog.Logger
}

// New creates the Tomorrow.io chain member.
func New(baseURL, apiKey string, timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.tomorrow.io"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpclient.New("tomorrowio", timeout, rps),
		logger:  logger,
	}
}

func (c *Client) Name() string { return "tomorrowio" }

// SupportsWindow bounds requests to the timeline's short lookback and
// forecast horizon.
func (c *Client) SupportsWindow(w domain.DateWindow) bool {
	today := domain.Today()
	earliest := today.AddDate(0, 0, -maxPastDays)
	latest := today.AddDate(0, 0, maxFutureDays)
	return !w.Start.Before(earliest) && !w.End.After(latest)
}

type timelinesResponse struct {
	Data struct {
		Timelines []struct {
			Intervals []struct {
				StartTime string `json:"startTime"`
				Values    struct {
					PrecipitationAmount *float64 `json:"precipitationAmount"`
				} `json:"values"`
			} `json:"intervals"`
		} `json:"timelines"`
	} `json:"data"`
}

// Fetch sums the daily precipitation intervals across the window.
func (c *Client) Fetch(ctx context.Context, loc domain.Location, w domain.DateWindow) (domain.Observation, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{
			"location":  {fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lon)},
			"fields":    {"precipitationAmount"},
			"timesteps": {"1d"},
			"units":     {"metric"},
			"startTime": {w.Start.Format(time.RFC3339)},
			"endTime":   {w.End.AddDate(0, 0, 1).Format(time.RFC3339)},
			"apikey":    {c.apiKey},
		}
		return http.NewRequest(http.MethodGet, c.baseURL+"/v4/timelines?"+params.Encode(), nil)
	}

	resp, err := c.http.Do(ctx, buildRequest)
	if err != nil {
		return domain.Observation{}, c.classify(err)
	}
	defer resp.Body.Close()

	var payload timelinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Observation{}, domain.NewProviderError(c.Name(), domain.ErrorParse, err)
	}
	if len(payload.Data.Timelines) == 0 {
		return domain.Observation{}, domain.NoDataError(c.Name(), "empty timeline")
	}

	var sum float64
	counted := 0
	for _, iv := range payload.Data.Timelines[0].Intervals {
		if iv.Values.PrecipitationAmount == nil {
			continue
		}
		sum += *iv.Values.PrecipitationAmount
		counted++
	}
	if counted == 0 {
		return domain.Observation{}, domain.NoDataError(c.Name(), "no intervals with values")
	}

	return domain.Observation{PrecipMM: sum, Partial: counted < w.Days()}, nil
}

func (c *Client) classify(err error) error {
	if se := httpclient.AsStatus(err); se != nil {
		switch se.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.NewProviderError(c.Name(), domain.ErrorAuth, err)
		case http.StatusBadRequest:
			return domain.NewProviderError(c.Name(), domain.ErrorNoCoverage, err)
		}
	}
	return domain.NewProviderError(c.Name(), domain.ErrorTransport, err)
}
