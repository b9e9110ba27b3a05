// Package api provides the HTTP API server and handlers for the MemeVault application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/memevault/memevault-server/internal/config"
	"github.com/memevault/memevault-server/internal/monitor"
	"github.com/memevault/memevault-server/internal/ratelimit"
	"github.com/memevault/memevault-server/internal/search"
	"github.com/memevault/memevault-server/internal/service"
	"github.com/memevault/memevault-server/internal/store"
	"github.com/memevault/memevault-server/internal/validation"
)

// apiVersion is reported in the OpenAPI document.
const apiVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
//
// JSON endpoints are registered through huma for OpenAPI generation and
// consistent error mapping. Image streaming and multipart upload use chi
// directly, since huma is a poor fit for raw bodies.
type Server struct {
	store         *store.Store
	index         *search.MemeIndex
	memes         *service.MemeService
	monitor       *monitor.Monitor
	validator     *validation.Validator
	uploadLimiter *RateLimiter
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st *store.Store, idx *search.MemeIndex, memes *service.MemeService, mon *monitor.Monitor, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig(cfg.Server.Name, apiVersion)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s := &Server{
		store:         st,
		index:         idx,
		memes:         memes,
		monitor:       mon,
		validator:     validation.New(),
		uploadLimiter: ratelimit.New(cfg.Server.UploadRPS, cfg.Server.UploadBurst),
		router:        router,
		logger:        logger,
	}

	s.setupMiddleware()

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerMemeRoutes()
	s.registerSearchRoutes()
	s.registerMonitorRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// The web client is served from a different origin on the home
	// network, so allow everything.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// MessageResponse contains a simple status message.
type MessageResponse struct {
	Message string `json:"message" doc:"Status message"`
}

// MessageOutput wraps MessageResponse for huma.
type MessageOutput struct {
	Body MessageResponse
}
