// Package resolver walks a prioritized provider chain to produce one
// authoritative rainfall observation per location and date window.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
)

// Resolver tries providers in strict priority order and returns the first
// usable observation. Exhausting the chain yields a *domain.UnresolvedError
// carrying one diagnostic per attempted provider; no value is ever fabricated.
type Resolver struct {
	providers []domain.Provider
	cache     *Cache
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a resolver over the given provider chain. Order is priority
// order; the first provider that answers wins.
func New(providers []domain.Provider, cache *Cache, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		providers: providers,
		cache:     cache,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the resolver can serve traffic. A chain
// with no members cannot resolve anything.
func (r *Resolver) CheckReadiness(_ context.Context) error {
	if len(r.providers) == 0 {
		return errors.New("no providers configured")
	}
	return nil
}

// Providers returns the names of the configured chain in priority order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the precipitation observation for the location and window,
// consulting the cache first and then the provider chain.
func (r *Resolver) Resolve(ctx context.Context, loc domain.Location, w domain.DateWindow) (domain.Observation, error) {
	start := domain.Now()
	obs, err := r.resolve(ctx, loc, w)
	r.metrics.ResolveDuration.Observe(domain.Now().Sub(start).Seconds())
	return obs, err
}

func (r *Resolver) resolve(ctx context.Context, loc domain.Location, w domain.DateWindow) (domain.Observation, error) {
	key := Key(loc, w)
	if obs, ok := r.cache.Get(key); ok {
		r.metrics.FallbackDepth.Observe(0)
		return obs, nil
	}

	var failures []domain.Failure
	attempts := 0

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return domain.Observation{}, err
		}

		if !p.SupportsWindow(w) {
			r.metrics.ProviderRequests.WithLabelValues(p.Name(), "skipped").Inc()
			continue
		}

		obs, err := r.fetch(ctx, p, loc, w)
		if err == nil {
			attempts++
			r.cache.Put(key, obs)
			r.metrics.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
			r.metrics.FallbackDepth.Observe(float64(attempts))
			if attempts > 1 {
				r.logger.Info("resolved after fallback",
					"provider", p.Name(),
					"window", w.String(),
					"attempts", attempts)
			}
			return obs, nil
		}

		failure := domain.FailureFrom(p.Name(), err)
		failures = append(failures, failure)

		// A provider discovering mid-flight that it has no coverage is
		// recorded for diagnostics but does not count as a fallback hop,
		// same as a SupportsWindow skip.
		if failure.Kind != domain.ErrorNoCoverage {
			attempts++
		}

		outcome := "failure"
		if failure.Kind == domain.ErrorNoData {
			outcome = "no_data"
		}
		r.metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()
		r.logger.Warn("provider attempt failed",
			"provider", p.Name(),
			"kind", string(failure.Kind),
			"window", w.String(),
			"error", failure.Detail)
	}

	r.metrics.UnresolvedTotal.Inc()
	r.metrics.FallbackDepth.Observe(float64(attempts))
	return domain.Observation{}, &domain.UnresolvedError{
		Location: loc,
		Window:   w,
		Failures: failures,
	}
}

// fetch invokes one provider under the per-attempt timeout. A slow provider
// must not starve the rest of the chain.
func (r *Resolver) fetch(ctx context.Context, p domain.Provider, loc domain.Location, w domain.DateWindow) (domain.Observation, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := domain.Now()
	obs, err := p.Fetch(fetchCtx, loc, w)
	r.metrics.ProviderDuration.WithLabelValues(p.Name()).Observe(domain.Now().Sub(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ErrorTransport, err)
		}
		return domain.Observation{}, err
	}

	obs.Provider = p.Name()
	obs.Location = loc
	obs.Window = w
	obs.ResolvedAt = domain.Now()
	return obs, nil
}
