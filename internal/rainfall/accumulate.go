// Package rainfall composes the provider chain into the two figures callers
// care about: a single day's total and the trailing accumulated total used
// for flood risk classification.
package rainfall

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
)

// ObservationResolver resolves one location and window to an observation.
type ObservationResolver interface {
	Resolve(ctx context.Context, loc domain.Location, w domain.DateWindow) (domain.Observation, error)
}

// Accumulator computes trailing-window rainfall totals. It prefers one
// whole-window resolution; when no provider can answer for the full window it
// falls back to resolving each day independently, allowing different days to
// come from different providers.
type Accumulator struct {
	resolver    ObservationResolver
	windowDays  int
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewAccumulator creates an accumulator over the given resolver.
func NewAccumulator(resolver ObservationResolver, windowDays, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Accumulator {
	return &Accumulator{
		resolver:    resolver,
		windowDays:  windowDays,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// WindowDays returns the configured trailing window length.
func (a *Accumulator) WindowDays() int { return a.windowDays }

// Accumulate returns the trailing total ending on (and including) end.
// Every day of the window must resolve; a single unresolved day makes the
// whole accumulation unresolved, because a partial sum would understate risk.
func (a *Accumulator) Accumulate(ctx context.Context, loc domain.Location, end time.Time) (*domain.Figure, error) {
	w := domain.TrailingWindow(end, a.windowDays)

	obs, err := a.resolver.Resolve(ctx, loc, w)
	if err == nil && !obs.Partial {
		return domain.FigureFrom(obs), nil
	}
	if err != nil && domain.AsUnresolved(err) == nil {
		return nil, err
	}

	// Whole-window resolution failed or came back incomplete. Resolve each
	// day on its own so gaps in one archive can be covered by another.
	a.metrics.DayByDayFallbacks.Inc()
	a.logger.Info("accumulating day by day",
		"window", w.String(),
		"days", a.windowDays)

	return a.accumulateDaily(ctx, loc, w)
}

func (a *Accumulator) accumulateDaily(ctx context.Context, loc domain.Location, w domain.DateWindow) (*domain.Figure, error) {
	days := w.Days()
	results := make([]domain.Observation, days)
	failures := make([][]domain.Failure, days)

	var mu sync.Mutex
	unresolved := false

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i := 0; i < days; i++ {
		g.Go(func() error {
			day := domain.SingleDay(w.Start.AddDate(0, 0, i))
			obs, err := a.resolver.Resolve(gctx, loc, day)
			if err != nil {
				ue := domain.AsUnresolved(err)
				if ue == nil {
					return err
				}
				mu.Lock()
				unresolved = true
				failures[i] = ue.Failures
				mu.Unlock()
				return nil
			}
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if unresolved {
		var all []domain.Failure
		for _, fs := range failures {
			all = append(all, fs...)
		}
		return nil, &domain.UnresolvedError{Location: loc, Window: w, Failures: all}
	}

	var total float64
	partial := false
	providers := make(map[string]struct{})
	for _, obs := range results {
		total += obs.PrecipMM
		if obs.Partial {
			partial = true
		}
		providers[obs.Provider] = struct{}{}
	}

	return &domain.Figure{
		PrecipMM: total,
		Provider: joinProviders(providers),
		Window:   w,
		Partial:  partial,
	}, nil
}

// joinProviders renders the set of contributing providers deterministically.
// Mixed provenance is allowed but always visible.
func joinProviders(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}
