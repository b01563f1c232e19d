package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sivanandareddychinta/PricingServiceDemo/config"
	"github.com/sivanandareddychinta/PricingServiceDemo/feed"
	"github.com/sivanandareddychinta/PricingServiceDemo/internal/logging"
	"github.com/sivanandareddychinta/PricingServiceDemo/service"
	"github.com/sivanandareddychinta/PricingServiceDemo/telemetry"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	configCheck := flag.Bool("config-check", false, "Validate configuration and exit")
	runFor := flag.Duration("run-for", 0, "Stop the demo feed after this duration (0 runs until interrupted)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *configCheck {
		fmt.Println("Configuration check completed successfully.")
		os.Exit(0)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	collector, err := newTelemetryCollector(cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		collector = telemetry.Noop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if *runFor > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, *runFor)
		defer timeoutCancel()
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Listen != "" {
		startMetricsListener(ctx, cfg.Telemetry.Listen)
	}

	svc := service.New(logger, collector)
	runner, err := feed.NewRunner(cfg.Feed, svc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create feed runner")
	}

	logger.Info().
		Str("name", cfg.Name).
		Int("producers", cfg.Feed.Producers).
		Int("consumers", cfg.Feed.Consumers).
		Int("instruments", len(cfg.Feed.Instruments)).
		Msg("starting pricing service demo")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal().Err(err).Msg("feed stopped with error")
	}

	logger.Info().
		Int("published_instruments", svc.GetPriceCount()).
		Int("active_batches", svc.ActiveBatchCount()).
		Msg("pricing service demo stopped")
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	collector, err := telemetry.NewPrometheusCollector(nil)
	if err != nil {
		return nil, err
	}
	return collector, nil
}

func startMetricsListener(ctx context.Context, listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: listen, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("listen", listen).Msg("metrics listener failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
