// Package postgis implements location.Store on a PostGIS database through the
// nearby_locations SQL function.
package postgis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/carefinder/carefinder/internal/location"
	"github.com/carefinder/carefinder/internal/resilience"
)

// StoreName is the name used in logs, metrics and the health registry.
const StoreName = "postgis"

// DefaultFunction is the SQL function queried for radius searches.
const DefaultFunction = "nearby_locations"

// Querier is the subset of *pgxpool.Pool used by the store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Config holds configuration for the PostGIS store.
type Config struct {
	// Function overrides the SQL function name (default: nearby_locations).
	Function string

	// QueryTimeout bounds each query; zero leaves only the request deadline.
	QueryTimeout time.Duration

	// CircuitBreaker overrides the default breaker settings.
	CircuitBreaker *resilience.CircuitBreakerConfig

	// Registry, if set, tracks the store's breaker health.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Store queries nearby locations from PostGIS.
type Store struct {
	db       Querier
	function string
	timeout  time.Duration
	breaker  *resilience.Breaker[[]location.Row]
	dialect  goqu.DialectWrapper
	logger   zerolog.Logger
}

// NewStore creates a PostGIS-backed store.
func NewStore(db Querier, cfg Config) *Store {
	fn := cfg.Function
	if fn == "" {
		fn = DefaultFunction
	}

	cbConfig := resilience.DefaultCircuitBreakerConfig(StoreName)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
		cbConfig.Name = StoreName
	}

	return &Store{
		db:       db,
		function: fn,
		timeout:  cfg.QueryTimeout,
		breaker:  resilience.NewBreaker[[]location.Row](cbConfig, cfg.Registry),
		dialect:  goqu.Dialect("postgres"),
		logger:   cfg.Logger,
	}
}

// Name implements location.Store.
func (s *Store) Name() string {
	return StoreName
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// NearbyLocations implements location.Store. The query runs once; an open
// circuit returns resilience.ErrCircuitOpen without touching the database.
func (s *Store) NearbyLocations(ctx context.Context, q location.Query) ([]location.Row, error) {
	query, args, err := s.BuildQuery(q)
	if err != nil {
		return nil, fmt.Errorf("build nearby query: %w", err)
	}

	result, err := s.breaker.Execute(func() ([]location.Row, error) {
		queryCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			queryCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		rows, err := s.db.Query(queryCtx, query, args...)
		if err != nil {
			return nil, queryError(err)
		}

		maps, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, queryError(err)
		}

		result := make([]location.Row, 0, len(maps))
		for _, m := range maps {
			result = append(result, location.Row(m))
		}
		return result, nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		s.logger.Debug().Str("store", StoreName).Msg("circuit open, query skipped")
	}
	return result, err
}

// BuildQuery renders the SELECT over the nearby function with prepared
// placeholders. Nil optional filters are sent as typed NULLs.
func (s *Store) BuildQuery(q location.Query) (string, []any, error) {
	fn := goqu.Func(s.function,
		goqu.Cast(goqu.V(q.Latitude), "DOUBLE PRECISION"),
		goqu.Cast(goqu.V(q.Longitude), "DOUBLE PRECISION"),
		goqu.Cast(goqu.V(q.RadiusKm), "DOUBLE PRECISION"),
		nullable(categoryArg(q.Category), "TEXT"),
		goqu.Cast(goqu.V(q.OnlyOpen), "BOOLEAN"),
		nullable(boolArg(q.Accessible), "BOOLEAN"),
		nullable(boolArg(q.Pets), "BOOLEAN"),
		nullable(genderArg(q.Gender), "TEXT"),
	)

	return s.dialect.
		From(fn.As("l")).
		Select(goqu.Star()).
		Order(goqu.I("l.distance_m").Asc()).
		Prepared(true).
		ToSQL()
}

func nullable(v any, sqlType string) exp.CastExpression {
	if v == nil {
		return goqu.Cast(goqu.L("NULL"), sqlType)
	}
	return goqu.Cast(goqu.V(v), sqlType)
}

func categoryArg(c *location.Category) any {
	if c == nil {
		return nil
	}
	return string(*c)
}

func genderArg(g *location.Gender) any {
	if g == nil {
		return nil
	}
	return string(*g)
}

func boolArg(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// queryError annotates postgres errors with their SQLSTATE.
func queryError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("nearby query failed (%s): %w", pgErr.Code, err)
	}
	return fmt.Errorf("nearby query failed: %w", err)
}
