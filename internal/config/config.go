package config

import (
	"errors"
	"os"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Provider chain configuration.
	ProviderPriority []string
	ProviderTimeout  time.Duration
	ProviderRateRPS  float64

	// Observation cache configuration. A zero historical TTL means entries
	// for fully elapsed windows never expire.
	CacheTTL           time.Duration
	CacheTTLHistorical time.Duration
	CacheSweepInterval time.Duration

	// Rolling accumulation configuration.
	AccumWindowDays  int
	AccumConcurrency int

	// Earth Engine proxy (CHIRPS and IMERG datasets).
	EarthEngineBaseURL string
	EarthEngineToken   string
	CHIRPSCorrection   float64

	// Forecast model providers.
	OpenMeteoBaseURL string
	TomorrowAPIKey   string

	// Kafka result publishing configuration.
	KafkaBrokers      []string
	KafkaResultsTopic string
	KafkaEnabled      bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parsePositiveDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	rateRPS, err := parseFloat("PROVIDER_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	historicalTTL, err := parseTTL("CACHE_TTL_HISTORICAL", "0s")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parsePositiveDuration("CACHE_SWEEP_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}

	windowDays, err := parseIntInRange("ACCUM_WINDOW_DAYS", 3, 1, 31)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseIntInRange("ACCUM_CONCURRENCY", 3, 1, 16)
	if err != nil {
		return nil, err
	}

	correction, err := parseFloat("CHIRPS_CORRECTION", 1.0)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := ParseBrokers(EnvOrDefault("KAFKA_BROKERS", ""))
	kafkaTopic := EnvOrDefault("KAFKA_RESULTS_TOPIC", "resolved-rainfall")
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ProviderPriority: ParseBrokers(EnvOrDefault("PROVIDER_PRIORITY", "imerg,chirps,openmeteo,tomorrowio")),
		ProviderTimeout:  providerTimeout,
		ProviderRateRPS:  rateRPS,

		CacheTTL:           cacheTTL,
		CacheTTLHistorical: historicalTTL,
		CacheSweepInterval: sweepInterval,

		AccumWindowDays:  windowDays,
		AccumConcurrency: concurrency,

		EarthEngineBaseURL: EnvOrDefault("EARTH_ENGINE_BASE_URL", ""),
		EarthEngineToken:   os.Getenv("EARTH_ENGINE_TOKEN"),
		CHIRPSCorrection:   correction,

		OpenMeteoBaseURL: EnvOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com"),
		TomorrowAPIKey:   os.Getenv("TOMORROW_API_KEY"),

		KafkaBrokers:      kafkaBrokers,
		KafkaResultsTopic: kafkaTopic,
		KafkaEnabled:      kafkaEnabled,
	}

	if len(cfg.ProviderPriority) == 0 {
		return nil, errors.New("PROVIDER_PRIORITY must name at least one provider")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required when publishing is enabled")
	}

	return cfg, nil
}
