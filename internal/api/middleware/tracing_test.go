package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/carefinder/carefinder/internal/api/middleware"
)

// recordSpans installs a recording global tracer provider for one test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

// onlySpan serves req through h and returns the single ended span.
func onlySpan(t *testing.T, sr *tracetest.SpanRecorder, h http.Handler, req *http.Request) sdktrace.ReadOnlySpan {
	t.Helper()
	h.ServeHTTP(httptest.NewRecorder(), req)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func respondWith(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

func TestTracing_SpanIsActiveInHandler(t *testing.T) {
	sr := recordSpans(t)

	var inHandler trace.SpanContext
	h := middleware.Tracing("carefinder-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanContextFromContext(r.Context())
	}))

	span := onlySpan(t, sr, h, httptest.NewRequest(http.MethodGet, "/locations", http.NoBody))

	assert.True(t, inHandler.IsValid())
	assert.Equal(t, span.SpanContext().SpanID(), inHandler.SpanID())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, "GET /locations", span.Name(), "unrouted requests fall back to the path")
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	sr := recordSpans(t)

	req := httptest.NewRequest(http.MethodGet, "/locations", http.NoBody)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	span := onlySpan(t, sr, middleware.Tracing("carefinder-test")(respondWith(http.StatusOK)), req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", span.Parent().SpanID().String())
}

func TestTracing_StatusHandling(t *testing.T) {
	tests := []struct {
		status   int
		wantCode codes.Code
	}{
		{http.StatusOK, codes.Unset},
		{http.StatusBadRequest, codes.Unset},
		{http.StatusTooManyRequests, codes.Unset},
		{http.StatusInternalServerError, codes.Error},
		{http.StatusServiceUnavailable, codes.Error},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sr := recordSpans(t)

			h := middleware.Tracing("carefinder-test")(respondWith(tt.status))
			span := onlySpan(t, sr, h, httptest.NewRequest(http.MethodGet, "/locations", http.NoBody))

			assert.Equal(t, int64(tt.status), spanAttrs(span)["http.response.status_code"].AsInt64())
			assert.Equal(t, tt.wantCode, span.Status().Code)
		})
	}
}

func TestTracing_TagsRequestID(t *testing.T) {
	sr := recordSpans(t)

	h := middleware.RequestID(middleware.Tracing("carefinder-test")(respondWith(http.StatusOK)))
	req := httptest.NewRequest(http.MethodGet, "/locations", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "req_from_gateway")

	span := onlySpan(t, sr, h, req)
	assert.Equal(t, "req_from_gateway", spanAttrs(span)["request.id"].AsString())
}

func TestTracing_RedactsCoordinates(t *testing.T) {
	sr := recordSpans(t)

	h := middleware.Tracing("carefinder-test")(respondWith(http.StatusOK))
	req := httptest.NewRequest(http.MethodGet, "/locations?lat=43.6532&lng=-79.3832&category=shelter", http.NoBody)

	span := onlySpan(t, sr, h, req)
	attrs := spanAttrs(span)

	for key, value := range attrs {
		assert.NotContains(t, value.Emit(), "43.6532", "attribute %s leaks the origin", key)
		assert.NotContains(t, value.Emit(), "-79.3832", "attribute %s leaks the origin", key)
	}
	assert.Equal(t, "category=shelter&lat=redacted&lng=redacted", attrs["url.query"].AsString())
	assert.NotContains(t, attrs, attribute.Key("client.address"))
}

func TestTracing_NamesSpanAfterRoutePattern(t *testing.T) {
	sr := recordSpans(t)

	router := chi.NewRouter()
	router.Use(middleware.Tracing("carefinder-test"))
	router.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	span := onlySpan(t, sr, router, httptest.NewRequest(http.MethodGet, "/v1/items/42", http.NoBody))

	assert.Equal(t, "GET /v1/items/{id}", span.Name())
	assert.Equal(t, "/v1/items/{id}", spanAttrs(span)["http.route"].AsString())
}
