package tomorrowio

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodcast/rainfall-resolver/internal/domain"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", 5*time.Second, 0, discard())
}

func TestFetch_SumsDailyIntervals(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "5.7900,102.5600", q.Get("location"))
		assert.Equal(t, "precipitationAmount", q.Get("fields"))
		assert.Equal(t, "1d", q.Get("timesteps"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "test-key", q.Get("apikey"))

		w.Write([]byte(`{"data": {"timelines": [{"intervals": [
			{"startTime": "2024-01-09T00:00:00Z", "values": {"precipitationAmount": 2.5}},
			{"startTime": "2024-01-10T00:00:00Z", "values": {"precipitationAmount": 7.5}}
		]}]}}`))
	})

	w, err := domain.NewDateWindow(
		time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	obs, err := c.Fetch(context.Background(), domain.Location{Lat: 5.79, Lon: 102.56}, w)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, obs.PrecipMM, 1e-9)
	assert.False(t, obs.Partial)
}

func TestFetch_ZeroIsTrusted(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": {"timelines": [{"intervals": [
			{"startTime": "2024-01-10T00:00:00Z", "values": {"precipitationAmount": 0.0}}
		]}]}}`))
	})

	obs, err := c.Fetch(context.Background(), domain.Location{Lat: 5.79, Lon: 102.56},
		domain.SingleDay(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs.PrecipMM)
}

func TestFetch_MissingDaysMarkPartial(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": {"timelines": [{"intervals": [
			{"startTime": "2024-01-09T00:00:00Z", "values": {"precipitationAmount": 3.0}},
			{"startTime": "2024-01-10T00:00:00Z", "values": {}}
		]}]}}`))
	})

	w, err := domain.NewDateWindow(
		time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	obs, err := c.Fetch(context.Background(), domain.Location{Lat: 5.79, Lon: 102.56}, w)
	require.NoError(t, err)
	assert.Equal(t, 3.0, obs.PrecipMM)
	assert.True(t, obs.Partial)
}

func TestFetch_EmptyTimelineIsNoData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": {"timelines": []}}`))
	})

	_, err := c.Fetch(context.Background(), domain.Location{Lat: 5.79, Lon: 102.56},
		domain.SingleDay(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorNoData, domain.KindOf(err))
}

func TestFetch_UnauthorizedIsAuth(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Fetch(context.Background(), domain.Location{Lat: 5.79, Lon: 102.56},
		domain.SingleDay(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorAuth, domain.KindOf(err))
}

func TestSupportsWindow(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	c := New("", "key", time.Second, 0, discard())

	assert.True(t, c.SupportsWindow(domain.SingleDay(time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC))))
	assert.True(t, c.SupportsWindow(domain.SingleDay(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))))
	assert.False(t, c.SupportsWindow(domain.SingleDay(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))),
		"historical days are out of reach")
	assert.False(t, c.SupportsWindow(domain.SingleDay(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC))),
		"beyond the forecast horizon")
}
