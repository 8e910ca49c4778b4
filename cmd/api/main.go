// Package main provides the entrypoint for the CareFinder API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carefinder/carefinder/internal/api"
	"github.com/carefinder/carefinder/internal/api/middleware"
	"github.com/carefinder/carefinder/internal/location"
	"github.com/carefinder/carefinder/internal/resilience"
	"github.com/carefinder/carefinder/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName     = "carefinder-api"
	shutdownTimeout = 30 * time.Second
)

func main() {
	telemetryConfig := telemetry.ConfigFromEnv(serviceName, Version)
	log := newLogger(telemetryConfig.Environment)

	if err := run(log, telemetryConfig); err != nil {
		log.Error().Err(err).Msg("carefinder api exited")
		os.Exit(1)
	}
}

// run wires the service and serves until SIGINT or SIGTERM. Deferred
// cleanup always runs because main only exits after run returns.
func run(log zerolog.Logger, telemetryConfig telemetry.Config) error {
	log.Info().Str("build_time", BuildTime).Msg("starting CareFinder API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProvider, err := telemetry.Init(ctx, telemetryConfig)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("failed to flush telemetry")
		}
	}()
	if telemetryConfig.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryConfig.OTLPEndpoint).
			Float64("sample_ratio", telemetryConfig.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	storeMetrics, err := telemetry.NewStoreMetrics(nil)
	if err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}

	registry := resilience.NewRegistry()
	setup, err := buildStore(ctx, os.Getenv("STORE_DRIVER"), registry, log)
	if err != nil {
		return fmt.Errorf("store configuration: %w", err)
	}
	if setup.pool != nil {
		defer setup.pool.Close()
	}

	tz, err := loadTimeZone(os.Getenv("LOCATIONS_TIMEZONE"))
	if err != nil {
		return err
	}
	fallback, err := loadFallback(os.Getenv("LOCATIONS_FALLBACK_FILE"))
	if err != nil {
		return err
	}

	locations := location.NewService(location.ServiceConfig{
		Store:    setup.store,
		Fallback: fallback,
		Logger:   log,
		Metrics:  storeMetrics,
		TimeZone: tz,
	})
	log.Info().
		Str("store", locations.StoreName()).
		Str("timezone", tz.String()).
		Bool("fallback_override", fallback != nil).
		Msg("location service initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         httpMetrics,
		LocationService: locations,
		Registry:        registry,
		AllowedOrigins:  middleware.ParseAllowedOrigins(os.Getenv("ALLOWED_ORIGINS")),
		RequireTLS:      os.Getenv("REQUIRE_TLS") == "true",
	})

	server := &http.Server{
		Addr:              ":" + envOr("APP_PORT", "8080"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// newLogger builds the root logger. Development uses the console writer.
func newLogger(env string) zerolog.Logger {
	log := zerolog.New(os.Stdout)
	if env == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
