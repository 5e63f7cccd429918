// Package server provides the HTTP server lifecycle wrapping the httpapi
// router.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/httpapi"
)

// Server wraps an http.Server bound to the httpapi router.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New constructs a Server listening on port, serving the router built from
// deps.
func New(port int, deps httpapi.Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      httpapi.NewRouter(deps),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: deps.Log.With().Str("component", "server").Logger(),
	}
}

// Start runs the HTTP server, blocking until it stops or errors.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
