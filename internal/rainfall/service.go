package rainfall

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
)

// ResultPublisher forwards resolved rainfall downstream. Publishing is best
// effort; a publish failure never fails the resolution itself.
type ResultPublisher interface {
	Publish(ctx context.Context, result domain.ResolvedRainfall) error
}

// Service is the facade callers use: one call yields the daily figure and the
// trailing accumulated figure for a location and date, each independently
// resolvable. Both figures missing is still a valid answer; it means the
// system does not know, which is never reported as zero rainfall.
type Service struct {
	resolver  ObservationResolver
	accum     *Accumulator
	publisher ResultPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates the rainfall facade. publisher may be nil when
// downstream publishing is disabled.
func NewService(resolver ObservationResolver, accum *Accumulator, publisher ResultPublisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		resolver:  resolver,
		accum:     accum,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Resolve produces the daily and accumulated figures for the location and
// date. The two resolutions run concurrently; failure of one leaves the
// other intact, with the chain's diagnostics attached to the result.
func (s *Service) Resolve(ctx context.Context, loc domain.Location, date time.Time) (domain.ResolvedRainfall, error) {
	day := domain.Midnight(date)

	var (
		daily       *domain.Figure
		accumulated *domain.Figure
		dailyDiags  []domain.Failure
		accumDiags  []domain.Failure
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		obs, err := s.resolver.Resolve(gctx, loc, domain.SingleDay(day))
		if err != nil {
			if ue := domain.AsUnresolved(err); ue != nil {
				dailyDiags = ue.Failures
				return nil
			}
			return err
		}
		daily = domain.FigureFrom(obs)
		return nil
	})

	g.Go(func() error {
		fig, err := s.accum.Accumulate(gctx, loc, day)
		if err != nil {
			if ue := domain.AsUnresolved(err); ue != nil {
				accumDiags = ue.Failures
				return nil
			}
			return err
		}
		accumulated = fig
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.ResolvedRainfall{}, err
	}

	diags := append(dailyDiags, accumDiags...)

	result := domain.ResolvedRainfall{
		Location:    loc,
		Date:        day,
		Month:       day.Month(),
		Daily:       daily,
		Accumulated: accumulated,
		Diagnostics: diags,
		ResolvedAt:  domain.Now(),
	}

	if result.Unresolved() {
		s.logger.Warn("rainfall unresolved",
			"location", loc.Fingerprint(),
			"date", day.Format(domain.DateLayout),
			"diagnostics", len(diags))
	}

	s.publish(ctx, result)
	return result, nil
}

func (s *Service) publish(ctx context.Context, result domain.ResolvedRainfall) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, result); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("publish resolved rainfall", "error", err)
		return
	}
	s.metrics.ResultsPublished.Inc()
}
