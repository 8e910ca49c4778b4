package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carefinder/carefinder/internal/api/middleware"
)

func TestContentTypeJSON(t *testing.T) {
	t.Run("defaults to json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middleware.ContentTypeJSON(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("handler can override", func(t *testing.T) {
		handler := middleware.ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusBadRequest)
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})
}

func TestCacheControl(t *testing.T) {
	tests := []struct {
		name   string
		status int
		write  bool
		want   string
	}{
		{"explicit ok", http.StatusOK, false, "public, max-age=60"},
		{"implicit ok on write", 0, true, "public, max-age=60"},
		{"bad request", http.StatusBadRequest, false, ""},
		{"rate limited", http.StatusTooManyRequests, false, ""},
		{"server error", http.StatusInternalServerError, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CacheControl("public, max-age=60")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				if tt.write {
					_, _ = w.Write([]byte(`{"results":[]}`))
				}
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations", http.NoBody))

			assert.Equal(t, tt.want, rec.Header().Get("Cache-Control"))
		})
	}
}
