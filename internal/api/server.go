// Package api serves the simulator over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/lunar/internal/api/handler/api"
	"github.com/newthinker/lunar/internal/api/middleware"
	"github.com/newthinker/lunar/internal/api/response"
	"github.com/newthinker/lunar/internal/archive"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/metrics"
	"github.com/newthinker/lunar/internal/narrator"
	"github.com/newthinker/lunar/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the simulator
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	sessions   *session.Store
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string // empty disables /metrics
}

// Dependencies are the components the routes serve. Sessions is required;
// the rest are optional.
type Dependencies struct {
	Sessions   *session.Store
	Narrator   *narrator.Narrator
	Exporter   *archive.Exporter
	Metrics    *metrics.Registry
	Simulation config.SimulationConfig
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger:   logger,
		mux:      mux,
		sessions: deps.Sessions,
	}
	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // narration may call a remote model
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	sessions := handler.NewSessionHandler(deps.Sessions, deps.Narrator, deps.Exporter, deps.Simulation, s.logger)
	auth := middleware.APIKeyAuth(cfg.APIKey)
	route := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, auth(fn))
	}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	route("POST /api/v1/sessions", sessions.Create)
	route("GET /api/v1/sessions", sessions.List)
	route("GET /api/v1/sessions/{id}", sessions.Get)
	route("DELETE /api/v1/sessions/{id}", sessions.Delete)
	route("GET /api/v1/sessions/{id}/series", sessions.Series)
	route("POST /api/v1/sessions/{id}/refresh", sessions.Refresh)
	route("GET /api/v1/sessions/{id}/analytics", sessions.Analytics)
	route("POST /api/v1/sessions/{id}/forecast", sessions.Forecast)
	route("GET /api/v1/sessions/{id}/best-phase", sessions.BestPhase)
	if sessions.CanExport() {
		route("POST /api/v1/sessions/{id}/export", sessions.Export)
	}

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
