package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/healthscope/internal/app"
	"github.com/ternarybob/healthscope/internal/common"
)

// Server manages the HTTP server and routes
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server
}

// New creates a new HTTP server with the given app
func New(application *app.App) *Server {
	s := &Server{
		app: application,
	}

	s.router = s.setupRoutes()

	// Panel runs hold the request open for every specialist, so the write
	// deadline has to outlast the per-agent timeout
	writeTimeout := common.ParseDurationOr(application.Config.Panel.AgentTimeout, 90*time.Second) + 2*time.Minute

	s.server = &http.Server{
		Addr:         s.addr(),
		Handler:      s.withConditionalMiddleware(s.router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) addr() string {
	return fmt.Sprintf("%s:%d", s.app.Config.Server.Host, s.app.Config.Server.Port)
}

// Handler returns the fully wrapped handler (used by tests)
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("address", s.addr()).
		Bool("metrics", s.app.Config.Metrics.Enabled).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
