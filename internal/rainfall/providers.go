package rainfall

import (
	"log/slog"

	"github.com/floodcast/rainfall-resolver/internal/adapter/earthengine"
	"github.com/floodcast/rainfall-resolver/internal/adapter/openmeteo"
	"github.com/floodcast/rainfall-resolver/internal/adapter/tomorrowio"
	"github.com/floodcast/rainfall-resolver/internal/config"
	"github.com/floodcast/rainfall-resolver/internal/domain"
)

// BuildProviders assembles the chain in the configured priority order,
// skipping providers whose credentials are absent. The returned slice may be
// empty; callers decide whether that is fatal.
func BuildProviders(cfg *config.Config, logger *slog.Logger) []domain.Provider {
	var providers []domain.Provider
	for _, name := range cfg.ProviderPriority {
		switch name {
		case "imerg":
			if cfg.EarthEngineBaseURL == "" {
				logger.Warn("skipping provider, EARTH_ENGINE_BASE_URL not set", "provider", name)
				continue
			}
			providers = append(providers, earthengine.NewIMERG(
				cfg.EarthEngineBaseURL, cfg.EarthEngineToken,
				cfg.ProviderTimeout, cfg.ProviderRateRPS, logger))
		case "chirps":
			if cfg.EarthEngineBaseURL == "" {
				logger.Warn("skipping provider, EARTH_ENGINE_BASE_URL not set", "provider", name)
				continue
			}
			providers = append(providers, earthengine.NewCHIRPS(
				cfg.EarthEngineBaseURL, cfg.EarthEngineToken, cfg.CHIRPSCorrection,
				cfg.ProviderTimeout, cfg.ProviderRateRPS, logger))
		case "openmeteo":
			providers = append(providers, openmeteo.New(
				cfg.OpenMeteoBaseURL, cfg.ProviderTimeout, cfg.ProviderRateRPS, logger))
		case "tomorrowio":
			if cfg.TomorrowAPIKey == "" {
				logger.Warn("skipping provider, TOMORROW_API_KEY not set", "provider", name)
				continue
			}
			providers = append(providers, tomorrowio.New(
				"", cfg.TomorrowAPIKey, cfg.ProviderTimeout, cfg.ProviderRateRPS, logger))
		default:
			logger.Warn("unknown provider in priority list", "provider", name)
		}
	}
	return providers
}
