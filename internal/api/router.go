// Package api provides the HTTP API for CareFinder.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/carefinder/carefinder/internal/api/handler"
	"github.com/carefinder/carefinder/internal/api/middleware"
	"github.com/carefinder/carefinder/internal/api/response"
	"github.com/carefinder/carefinder/internal/location"
	"github.com/carefinder/carefinder/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	Metrics         *middleware.Metrics
	LocationService *location.Service
	Registry        *resilience.Registry
	AllowedOrigins  []string
	RequireTLS      bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "carefinder-api"
	}

	locationService := cfg.LocationService
	if locationService == nil {
		locationService = location.NewService(location.ServiceConfig{Logger: cfg.Logger})
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a proxy
	r.Use(middleware.CORS(cfg.AllowedOrigins))   // Browser clients
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, r.Method+" is not supported on "+r.URL.Path)
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, locationService, cfg.Registry)
	locationHandler := handler.NewLocationHandler(locationService)
	metadataHandler := handler.NewMetadataHandler()

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min
	searchCache := middleware.CacheControl("public, max-age=60")

	// Public search endpoint
	r.With(standardRateLimit, searchCache).Get("/locations", locationHandler.FindNearby)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.With(standardRateLimit, searchCache).Get("/locations", locationHandler.FindNearby)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints (public) - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Use(middleware.CacheControl("public, max-age=3600"))
			r.Get("/enums", metadataHandler.GetEnums)
		})
	})

	return r
}
