// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package status serves a read-only HTTP view of a running search.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/ramsey/services/ramsey/controller"
	"github.com/AleutianAI/ramsey/services/ramsey/graph"
	"github.com/AleutianAI/ramsey/services/ramsey/telemetry"
)

// Source is the running search the server reports on.
//
// *controller.Controller satisfies it.
type Source interface {
	RunID() string
	Stats() controller.Stats
	Graph() *graph.Graph
}

// Config configures the server.
type Config struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string `yaml:"addr"`

	// ServiceName names the otelgin spans.
	ServiceName string `yaml:"service_name"`

	// Debug enables gin debug mode and request logging.
	Debug bool `yaml:"debug"`

	// ShutdownTimeout bounds graceful shutdown. Zero means 5s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Server exposes health, stats, the current coloring and metrics.
type Server struct {
	cfg     Config
	router  *gin.Engine
	logger  *slog.Logger
	started time.Time
}

// NewServer builds the router.
//
// Routes:
//
//	GET /v1/ramsey/health  - liveness and run id
//	GET /v1/ramsey/status  - controller.Stats as JSON
//	GET /v1/ramsey/graph   - current coloring (?format=loader|adjacency|summary|mathematica)
//	GET /metrics           - Prometheus exposition
func NewServer(cfg Config, source Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ramsey-status"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	if cfg.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		cfg:     cfg,
		router:  router,
		logger:  logger.With(slog.String("component", "status")),
		started: time.Now(),
	}
	RegisterRoutes(router.Group("/v1"), &Handlers{source: source, started: s.started})
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	return s
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on cfg.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. It
// returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", slog.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.logger.Info("status server stopped")
	return nil
}
