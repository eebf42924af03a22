package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	httpadapter "github.com/floodcast/rainfall-resolver/internal/adapter/http"
	kafkaadapter "github.com/floodcast/rainfall-resolver/internal/adapter/kafka"
	"github.com/floodcast/rainfall-resolver/internal/config"
	"github.com/floodcast/rainfall-resolver/internal/observability"
	"github.com/floodcast/rainfall-resolver/internal/rainfall"
	"github.com/floodcast/rainfall-resolver/internal/resolver"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	providers := rainfall.BuildProviders(cfg, logger)
	if len(providers) == 0 {
		logger.Warn("no providers could be configured, serving in degraded mode")
	}

	cache := resolver.NewCache(cfg.CacheTTL, cfg.CacheTTLHistorical, clockwork.NewRealClock(), metrics)
	chain := resolver.New(providers, cache, cfg.ProviderTimeout, logger, metrics)
	logger.Info("provider chain configured", "providers", chain.Providers())

	accum := rainfall.NewAccumulator(chain, cfg.AccumWindowDays, cfg.AccumConcurrency, logger, metrics)

	// Result publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher rainfall.ResultPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaResultsTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	service := rainfall.NewService(chain, accum, publisher, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, service, chain, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Periodically drop expired cache entries.
	go cache.RunSweeper(ctx, cfg.CacheSweepInterval)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
