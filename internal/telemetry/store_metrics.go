package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/carefinder/carefinder/internal/telemetry"

// StoreMetrics counts location store calls and searches answered from the
// fallback dataset. A nil *StoreMetrics records nothing.
type StoreMetrics struct {
	duration  metric.Float64Histogram
	calls     metric.Int64Counter
	fallbacks metric.Int64Counter
}

// NewStoreMetrics creates the store instruments on mp, or on the global
// meter provider when mp is nil.
func NewStoreMetrics(mp metric.MeterProvider) (*StoreMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	duration, errDuration := meter.Float64Histogram("carefinder.store.request.duration",
		metric.WithDescription("Duration of location store requests"),
		metric.WithUnit("s"))
	calls, errCalls := meter.Int64Counter("carefinder.store.requests",
		metric.WithDescription("Location store requests by outcome"),
		metric.WithUnit("{request}"))
	fallbacks, errFallbacks := meter.Int64Counter("carefinder.search.fallbacks",
		metric.WithDescription("Searches answered from the fallback dataset"),
		metric.WithUnit("{request}"))

	if err := errors.Join(errDuration, errCalls, errFallbacks); err != nil {
		return nil, fmt.Errorf("create store instruments: %w", err)
	}
	return &StoreMetrics{duration: duration, calls: calls, fallbacks: fallbacks}, nil
}

// RecordRequest records one store call with an outcome of ok, timeout,
// canceled or error.
func (m *StoreMetrics) RecordRequest(ctx context.Context, store, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("store.name", store),
		attribute.String("store.operation", operation),
		attribute.String("outcome", outcome(err)),
	)

	// Detached so a cancelled request still gets counted.
	ctx = context.WithoutCancel(ctx)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.calls.Add(ctx, 1, attrs)
}

// RecordFallback records a search served from the fallback dataset.
func (m *StoreMetrics) RecordFallback(ctx context.Context, store, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("store.name", store),
		attribute.String("fallback.reason", reason),
	))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
