package rainfall

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
)

type capturingPublisher struct {
	mu      sync.Mutex
	results []domain.ResolvedRainfall
	err     error
}

func (p *capturingPublisher) Publish(_ context.Context, r domain.ResolvedRainfall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, r)
	return nil
}

func newService(r ObservationResolver, pub ResultPublisher) *Service {
	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	accum := NewAccumulator(r, 3, 3, logger, metrics)
	return NewService(r, accum, pub, logger, metrics)
}

func TestResolve_BothFigures(t *testing.T) {
	now := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	r := newScriptedResolver()
	r.answer(domain.SingleDay(jan(10)), "imerg", 12.5)
	r.answer(domain.TrailingWindow(jan(10), 3), "chirps", 30.0)

	got, err := newService(r, nil).Resolve(context.Background(), besut, jan(10))
	require.NoError(t, err)

	want := domain.ResolvedRainfall{
		Location: besut,
		Date:     jan(10),
		Month:    time.January,
		Daily: &domain.Figure{
			PrecipMM: 12.5,
			Provider: "imerg",
			Window:   domain.SingleDay(jan(10)),
		},
		Accumulated: &domain.Figure{
			PrecipMM: 30.0,
			Provider: "chirps",
			Window:   domain.TrailingWindow(jan(10), 3),
		},
		ResolvedAt: now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved rainfall mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.Unresolved())
}

func TestResolve_DailyUnresolvedLeavesAccumulatedIntact(t *testing.T) {
	r := newScriptedResolver()
	r.unresolved(domain.SingleDay(jan(10)),
		domain.Failure{Provider: "imerg", Kind: domain.ErrorTransport})
	r.answer(domain.TrailingWindow(jan(10), 3), "chirps", 30.0)

	got, err := newService(r, nil).Resolve(context.Background(), besut, jan(10))
	require.NoError(t, err)

	assert.Nil(t, got.Daily)
	require.NotNil(t, got.Accumulated)
	assert.Equal(t, 30.0, got.Accumulated.PrecipMM)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, "imerg", got.Diagnostics[0].Provider)
}

func TestResolve_AccumulatedUnresolvedCarriesDiagnostics(t *testing.T) {
	r := newScriptedResolver()
	r.answer(domain.SingleDay(jan(10)), "imerg", 5.0)
	// Whole window unresolved, and one gap day in the per-day fallback.
	r.unresolved(domain.TrailingWindow(jan(10), 3))
	r.unresolved(domain.SingleDay(jan(8)),
		domain.Failure{Provider: "chirps", Kind: domain.ErrorNoData})
	r.answer(domain.SingleDay(jan(9)), "chirps", 2.0)

	got, err := newService(r, nil).Resolve(context.Background(), besut, jan(10))
	require.NoError(t, err)

	require.NotNil(t, got.Daily)
	assert.Nil(t, got.Accumulated)
	require.Len(t, got.Diagnostics, 1, "accumulation failures must be surfaced")
	assert.Equal(t, "chirps", got.Diagnostics[0].Provider)
	assert.Equal(t, domain.ErrorNoData, got.Diagnostics[0].Kind)
}

func TestResolve_FullyUnresolvedIsAValidResult(t *testing.T) {
	r := newScriptedResolver()
	// Every window unresolved by default in the scripted resolver.

	got, err := newService(r, nil).Resolve(context.Background(), besut, jan(10))
	require.NoError(t, err, "unresolved is an answer, not an error")

	assert.True(t, got.Unresolved())
	assert.Nil(t, got.Daily)
	assert.Nil(t, got.Accumulated)
}

func TestResolve_PublishesResult(t *testing.T) {
	r := newScriptedResolver()
	r.answer(domain.SingleDay(jan(10)), "imerg", 5.0)
	r.answer(domain.TrailingWindow(jan(10), 3), "chirps", 9.0)

	pub := &capturingPublisher{}
	_, err := newService(r, pub).Resolve(context.Background(), besut, jan(10))
	require.NoError(t, err)

	require.Len(t, pub.results, 1)
	assert.Equal(t, 5.0, pub.results[0].Daily.PrecipMM)
}

func TestResolve_PublishFailureDoesNotFailResolution(t *testing.T) {
	r := newScriptedResolver()
	r.answer(domain.SingleDay(jan(10)), "imerg", 5.0)
	r.answer(domain.TrailingWindow(jan(10), 3), "chirps", 9.0)

	pub := &capturingPublisher{err: errors.New("broker down")}
	got, err := newService(r, pub).Resolve(context.Background(), besut, jan(10))
	require.NoError(t, err)
	require.NotNil(t, got.Daily)
}

func TestResolve_TruncatesTimeOfDay(t *testing.T) {
	r := newScriptedResolver()
	r.answer(domain.SingleDay(jan(10)), "imerg", 5.0)
	r.answer(domain.TrailingWindow(jan(10), 3), "chirps", 9.0)

	got, err := newService(r, nil).Resolve(context.Background(), besut,
		time.Date(2024, 1, 10, 17, 45, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, jan(10), got.Date)
}
