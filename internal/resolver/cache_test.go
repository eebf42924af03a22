package resolver

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
)

var testLoc = domain.Location{Lat: 5.79, Lon: 102.56}

func newTestCache(t *testing.T, ttl, historicalTTL time.Duration) (*Cache, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	return NewCache(ttl, historicalTTL, clock, observability.NewMetricsForTesting()), clock
}

func obsFor(w domain.DateWindow, mm float64) domain.Observation {
	return domain.Observation{Provider: "imerg", Location: testLoc, Window: w, PrecipMM: mm}
}

func TestCache_HitWithinTTL(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour, time.Hour)
	w := domain.SingleDay(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	key := Key(testLoc, w)

	cache.Put(key, obsFor(w, 12.5))

	clock.Advance(30 * time.Minute)
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, 12.5, got.PrecipMM)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour, time.Hour)
	w := domain.SingleDay(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	key := Key(testLoc, w)

	cache.Put(key, obsFor(w, 12.5))

	clock.Advance(time.Hour + time.Second)
	_, ok := cache.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "expired entry is dropped on access")
}

func TestCache_HistoricalEntriesNeverExpireWithZeroTTL(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour, 0)
	// Window fully elapsed relative to the fake clock (2024-01-15).
	w := domain.SingleDay(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	key := Key(testLoc, w)

	cache.Put(key, obsFor(w, 3.2))

	clock.Advance(30 * 24 * time.Hour)
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, 3.2, got.PrecipMM)
}

func TestCache_CurrentDayUsesShortTTL(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour, 0)
	// Window includes today, so the short TTL applies despite the
	// infinite historical TTL.
	w := domain.SingleDay(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	key := Key(testLoc, w)

	cache.Put(key, obsFor(w, 7.0))

	clock.Advance(2 * time.Hour)
	_, ok := cache.Get(key)
	assert.False(t, ok)
}

func TestCache_NearbyLocationsShareEntry(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour, time.Hour)
	w := domain.SingleDay(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	a := domain.Location{Lat: 5.79001, Lon: 102.56002}
	b := domain.Location{Lat: 5.79004, Lon: 102.55998}

	cache.Put(Key(a, w), obsFor(w, 9.9))
	got, ok := cache.Get(Key(b, w))
	require.True(t, ok)
	assert.Equal(t, 9.9, got.PrecipMM)
}

func TestCache_Sweep(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour, 0)
	today := domain.SingleDay(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	historical := domain.SingleDay(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))

	cache.Put(Key(testLoc, today), obsFor(today, 1))
	cache.Put(Key(testLoc, historical), obsFor(historical, 2))
	require.Equal(t, 2, cache.Len())

	clock.Advance(2 * time.Hour)
	dropped := cache.Sweep()

	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, cache.Len(), "the never-expiring historical entry survives")
}
