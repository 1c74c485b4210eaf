// SPDX-License-Identifier: MIT

// Package api exposes the gateway's read-only HTTP surface: the health
// contract and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/srtgate/internal/health"
	"github.com/ManuGH/srtgate/internal/log"
)

// Server serves the health and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer builds the router and server for the given reporter.
func NewServer(addr string, reporter *health.Reporter) *Server {
	r := chi.NewRouter()

	for _, path := range []string{"/", "/health", "/healthz"} {
		r.Get(path, reporter.ServeHTTP)
	}
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log.WithComponent("api"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("event", "api.listening").
			Str("addr", s.httpServer.Addr).
			Msg("health endpoint listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Str("event", "api.shutdown_error").Msg("forcing server close")
		_ = s.httpServer.Close()
	}
	<-errCh
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
