// Package api provides the HTTP API server and handlers for artfetch.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/artfetch/internal/metrics"
	"github.com/listenupapp/artfetch/internal/provider"
	"github.com/listenupapp/artfetch/internal/ratelimit"
	"github.com/listenupapp/artfetch/internal/safety"
	"github.com/listenupapp/artfetch/internal/service"
)

// Services groups what the handlers need.
type Services struct {
	Search   *service.SearchService
	Registry *provider.Registry
	Client   *provider.HTTPClient // Optional, reports provider cooldowns
	Guard    *safety.Guard
	Metrics  *metrics.Metrics
}

// Options tunes the server.
type Options struct {
	Version string
	// SearchRPM limits search requests per client per minute. Zero disables.
	SearchRPM   int
	SearchBurst int
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	router   *chi.Mux
	api      huma.API
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		services: services,
		router:   chi.NewRouter(),
		logger:   logger,
	}
	if opts.SearchRPM > 0 {
		s.limiter = NewRateLimiter(opts.SearchRPM, time.Minute, max(opts.SearchBurst, 1))
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("artfetch API", opts.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerSearchRoutes()
	s.registerTagRoutes()
	s.router.Handle("/metrics", services.Metrics.Handler())

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Compress(5))
}
