// Package earthengine adapts satellite precipitation datasets served through
// an Earth Engine reduce proxy. Two chain members live here: IMERG (daily
// satellite estimates, one day of processing lag) and CHIRPS (gauge-blended
// daily rainfall, two days of lag).
package earthengine

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
	chirpsDataset = "UCSB-CHG/CHIRPS/DAILY"
	chirpsBand    = "precipitation"
	chirpsScale   = 5000

	imergDataset = "NASA/GPM_L3/IMERG_V06"
	imergBand    = "precipitationCal"
	imergScale   = 10000
)

// Client queries one dataset through the reduce proxy. A satellite zero is
// indistinguishable from a data gap, so zero, negative, and absent values all
// come back as no_data and the chain moves on.
type Client struct {
	name       string
	dataset    string
	band       string
	scale      int
	lagDays    int
	correction float64

	baseURL string
	token   string
	http    *httpclient.Client
	logger  *slog.Logger
}

// NewIMERG creates the IMERG chain member.
func NewIMERG(baseURL, token string, timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	return &Client{
		name:       "imerg",
		dataset:    imergDataset,
		band:       imergBand,
		scale:      imergScale,
		lagDays:    1,
		correction: 1.0,
		baseURL:    baseURL,
		token:      token,
		http:       httpclient.New("imerg", timeout, rps),
		logger:     logger,
	}
}

// NewCHIRPS creates the CHIRPS chain member. correction is a multiplicative
// bias adjustment against local gauge records; 1.0 leaves values untouched.
func NewCHIRPS(baseURL, token string, correction float64, timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	return &Client{
		name:       "chirps",
		dataset:    chirpsDataset,
		band:       chirpsBand,
		scale:      chirpsScale,
		lagDays:    2,
		correction: correction,
		baseURL:    baseURL,
		token:      token,
		http:       httpclient.New("chirps", timeout, rps),
		logger:     logger,
	}
}

func (c *Client) Name() string { return c.name }

// SupportsWindow rejects windows that reach past the dataset's processing
// lag. Satellite archives never cover the future.
func (c *Client) SupportsWindow(w domain.DateWindow) bool {
	latest := domain.Today().AddDate(0, 0, -c.lagDays)
	return !w.End.After(latest)
}

// Fetch reduces the dataset over the buffered location and sums precipitation
// across the window.
func (c *Client) Fetch(ctx context.Context, loc domain.Location, w domain.DateWindow) (domain.Observation, error) {
	buildRequest := func() (*http.Request, error) {
		params := url.Values{
			"dataset": {c.dataset},
			"band":    {c.band},
			"scale":   {fmt.Sprintf("%d", c.scale)},
			"lat":     {fmt.Sprintf("%.6f", loc.Lat)},
			"lon":     {fmt.Sprintf("%.6f", loc.Lon)},
			"start":   {w.Start.Format(domain.DateLayout)},
			"end":     {w.End.Format(domain.DateLayout)},
			"reducer": {"sum"},
		}
		if loc.RadiusMeters > 0 {
			params.Set("radius_m", fmt.Sprintf("%.0f", loc.RadiusMeters))
		}

		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/v1/reduce?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		return req, nil
	}

	resp, err := c.http.Do(ctx, buildRequest)
	if err != nil {
		return domain.Observation{}, c.classify(err)
	}
	defer resp.Body.Close()

	var payload struct {
		Value      *float64 `json:"value"`
		ImageCount int      `json:"image_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Observation{}, domain.NewProviderError(c.name, domain.ErrorParse, err)
	}

	if payload.ImageCount == 0 {
		return domain.Observation{}, domain.NoDataError(c.name, "no images in window")
	}
	if payload.Value == nil {
		return domain.Observation{}, domain.NoDataError(c.name, "empty reduction")
	}
	if *payload.Value <= 0 {
		// Cannot distinguish a genuinely dry day from a coverage gap.
		return domain.Observation{}, domain.NoDataError(c.name,
			fmt.Sprintf("non-positive estimate %.3f", *payload.Value))
	}

	return domain.Observation{PrecipMM: *payload.Value * c.correction}, nil
}

func (c *Client) classify(err error) error {
	if se := httpclient.AsStatus(err); se != nil {
		switch se.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.NewProviderError(c.name, domain.ErrorAuth, err)
		case http.StatusNotFound:
			return domain.NoDataError(c.name, se.Error())
		}
	}
	return domain.NewProviderError(c.name, domain.ErrorTransport, err)
}
