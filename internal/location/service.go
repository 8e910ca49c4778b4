package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carefinder/carefinder/internal/telemetry"
)

const tracerName = "github.com/carefinder/carefinder/internal/location"

// Result sources reported on spans and in logs.
const (
	SourceStore    = "store"
	SourceFallback = "fallback"
)

// ServiceConfig holds configuration for the location service.
type ServiceConfig struct {
	// Store is the geospatial backend. Nil means no store is configured and
	// every search is answered from the fallback dataset.
	Store Store

	// Fallback overrides the bundled dataset (tests).
	Fallback []Location

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics *telemetry.StoreMetrics

	// TimeZone is used for open-now evaluation (default: time.Local).
	TimeZone *time.Location

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Service answers nearby searches from the store, degrading to the fallback
// dataset on any store failure.
type Service struct {
	store    Store
	fallback []Location
	logger   zerolog.Logger
	metrics  *telemetry.StoreMetrics
	timeZone *time.Location
	now      func() time.Time
	tracer   trace.Tracer
}

// NewService creates a new location service.
func NewService(cfg ServiceConfig) *Service {
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:    cfg.Store,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		timeZone: tz,
		now:      now,
		tracer:   otel.Tracer(tracerName),
	}
}

// StoreName returns the configured store's name, or "none".
func (s *Service) StoreName() string {
	if s.store == nil {
		return "none"
	}
	return s.store.Name()
}

// Ping checks store connectivity. It returns ErrStoreUnavailable when no
// store is configured and nil for stores that cannot be pinged.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// FindNearby returns up to MaxResults locations near the criteria origin,
// ordered by ascending distance. The only error is ErrInvalidOrigin; store
// failures are logged and answered from the fallback dataset.
func (s *Service) FindNearby(ctx context.Context, criteria FilterCriteria) ([]Location, error) {
	if err := validateOrigin(criteria.Latitude, criteria.Longitude); err != nil {
		return nil, err
	}
	if criteria.RadiusKm <= 0 || !finite(criteria.RadiusKm) {
		criteria.RadiusKm = DefaultRadiusKm
	}
	if criteria.EvaluatedAt.IsZero() {
		criteria.EvaluatedAt = s.now().In(s.timeZone)
	}

	ctx, span := s.tracer.Start(ctx, "location.FindNearby",
		trace.WithAttributes(
			attribute.Float64("location.radius_km", criteria.RadiusKm),
			attribute.Bool("location.open_now", criteria.OpenNow),
			attribute.String("location.store", s.StoreName()),
		),
	)
	defer span.End()

	candidates, source := s.candidates(ctx, criteria)
	results := ApplyFilters(candidates, criteria)

	span.SetAttributes(
		attribute.String("location.source", source),
		attribute.Int("location.candidates", len(candidates)),
		attribute.Int("location.results", len(results)),
	)
	return results, nil
}

// candidates queries the store once; any failure switches to the fallback dataset.
func (s *Service) candidates(ctx context.Context, criteria FilterCriteria) ([]Location, string) {
	rows, err := s.queryStore(ctx, QueryFromCriteria(criteria))
	if err == nil {
		return DecodeRows(rows), SourceStore
	}

	reason := "error"
	if errors.Is(err, ErrStoreUnavailable) {
		reason = "unconfigured"
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "store query failed")

	event := s.loggerFor(ctx).Warn().
		Err(err).
		Str("store", s.StoreName()).
		Str("reason", reason)
	if sc := span.SpanContext(); sc.IsValid() {
		event = event.Str("trace_id", sc.TraceID().String())
	}
	event.Msg("location store unavailable, serving fallback dataset")

	s.metrics.RecordFallback(ctx, s.StoreName(), reason)
	return s.fallbackLocations(), SourceFallback
}

func (s *Service) queryStore(ctx context.Context, q Query) ([]Row, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	start := time.Now()
	rows, err := s.store.NearbyLocations(ctx, q)
	s.metrics.RecordRequest(ctx, s.store.Name(), "nearby_locations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s nearby query: %w", s.store.Name(), err)
	}

	s.loggerFor(ctx).Debug().
		Str("store", s.store.Name()).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("location store query completed")
	return rows, nil
}

// loggerFor prefers the request-scoped logger carried by ctx.
func (s *Service) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func (s *Service) fallbackLocations() []Location {
	if s.fallback != nil {
		out := make([]Location, len(s.fallback))
		copy(out, s.fallback)
		for i := range out {
			out[i].DistanceMeters = nil
		}
		return out
	}
	return FallbackLocations()
}

func validateOrigin(lat, lng float64) error {
	if !finite(lat) || !finite(lng) {
		return ErrInvalidOrigin
	}
	if math.Abs(lat) > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidOrigin, lat)
	}
	if math.Abs(lng) > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidOrigin, lng)
	}
	return nil
}
