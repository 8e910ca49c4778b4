package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/carefinder/carefinder/internal/api/middleware"
)

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/locations?lat=43.65&lng=-79.38", http.NoBody)
	req.Header.Set("User-Agent", "outreach-app/2.1")
	req.RemoteAddr = "198.51.100.23:5000"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/locations", entry["path"])
	assert.Equal(t, "/locations", entry["route"])
	assert.Equal(t, float64(200), entry["status"], "implicit 200 when the handler only writes")
	assert.Equal(t, float64(14), entry["bytes"])
	assert.Equal(t, "outreach-app/2.1", entry["user_agent"])
	assert.Contains(t, entry, "duration")

	assert.NotContains(t, buf.String(), "43.65", "coordinates stay out of logs")
	assert.NotContains(t, buf.String(), "198.51.100.23", "client addresses stay out of logs")
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusTooManyRequests, "warn"},
		{http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/locations", http.NoBody))

			entries := logLines(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Equal(t, float64(tt.status), entries[0]["status"])
		})
	}
}

func TestLogger_RoutePattern(t *testing.T) {
	var buf bytes.Buffer
	router := chi.NewRouter()
	router.Use(middleware.Logger(zerolog.New(&buf)))
	router.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/items/9", http.NoBody))

	entries := logLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "/v1/items/{id}", entries[0]["route"])
	assert.Equal(t, "/v1/items/9", entries[0]["path"])
}

func TestLogger_RequestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.RequestID(
		middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zerolog.Ctx(r.Context()).Warn().Msg("store unavailable, serving fallback")
			w.WriteHeader(http.StatusOK)
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "/locations", http.NoBody)
	req.Header.Set("X-Request-Id", "client-req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "store unavailable, serving fallback", entries[0]["message"])
	for _, entry := range entries {
		assert.Equal(t, "client-req-1", entry["request_id"])
	}
}

func TestLogger_IncludesTraceContext(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	handler := middleware.Tracing("test-service")(
		middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zerolog.Ctx(r.Context()).Info().Msg("searching")
			w.WriteHeader(http.StatusOK)
		})),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/locations", http.NoBody))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	wantTrace := spans[0].SpanContext().TraceID().String()

	entries := logLines(t, &buf)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, wantTrace, entry["trace_id"])
		assert.Len(t, entry["span_id"], 16)
	}
}

func TestLogger_NoTraceFieldsWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	entries := logLines(t, &buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "trace_id")
	assert.NotContains(t, entries[0], "span_id")
}
