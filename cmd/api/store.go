package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carefinder/carefinder/internal/database"
	"github.com/carefinder/carefinder/internal/location"
	"github.com/carefinder/carefinder/internal/location/postgis"
	"github.com/carefinder/carefinder/internal/location/postgrest"
	"github.com/carefinder/carefinder/internal/resilience"
)

// Store drivers selected by STORE_DRIVER.
const (
	driverPostGIS   = "postgis"
	driverPostgREST = "postgrest"
	driverNone      = "none"
)

// storeSetup is the outcome of store selection. pool is non-nil only for
// the postgis driver and must be closed on shutdown.
type storeSetup struct {
	store location.Store
	pool  *pgxpool.Pool
}

// buildStore selects the location store. A database that cannot be reached
// at startup leaves the service running on the fallback dataset.
func buildStore(ctx context.Context, driver string, registry *resilience.Registry, log zerolog.Logger) (storeSetup, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", driverPostGIS:
		dbConfig := database.ConfigFromEnv()
		pool, err := database.ConnectWithRetry(ctx, dbConfig, log)
		if err != nil {
			log.Warn().
				Err(err).
				Str("host", dbConfig.Host).
				Msg("database unavailable, serving fallback dataset only")
			return storeSetup{}, nil
		}
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		store := postgis.NewStore(pool, postgis.Config{
			QueryTimeout: dbConfig.QueryTimeout,
			Registry:     registry,
			Logger:       log,
		})
		return storeSetup{store: store, pool: pool}, nil

	case driverPostgREST:
		cfg := postgrest.ConfigFromEnv()
		if cfg.BaseURL == "" {
			return storeSetup{}, fmt.Errorf("STORE_DRIVER=%s requires POSTGREST_URL", driverPostgREST)
		}
		cfg.Registry = registry
		log.Info().
			Str("url", cfg.BaseURL).
			Str("function", cfg.Function).
			Bool("role_tokens", cfg.JWTSecret != "").
			Msg("postgrest store configured")
		return storeSetup{store: postgrest.NewClient(cfg)}, nil

	case driverNone:
		log.Warn().Msg("no location store configured, serving fallback dataset only")
		return storeSetup{}, nil

	default:
		return storeSetup{}, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

// loadTimeZone resolves LOCATIONS_TIMEZONE, defaulting to the local zone.
func loadTimeZone(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load LOCATIONS_TIMEZONE: %w", err)
	}
	return tz, nil
}

// loadFallback reads an override fallback dataset. An empty path keeps the
// bundled dataset.
func loadFallback(path string) ([]location.Location, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback file: %w", err)
	}
	return location.ParseFallback(data)
}
