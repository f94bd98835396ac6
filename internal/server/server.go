// Package server provides the HTTP surface of the pulsemon engine: the
// query and alert-management API, the optional Prometheus exporter and
// the middleware feeding the performance collector.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atlet99/pulsemon/internal/config"
	"github.com/atlet99/pulsemon/internal/engine"
)

const (
	readHeaderTimeout = 30 * time.Second
)

// Server wraps the API server and the optional Prometheus exporter
type Server struct {
	*http.Server
	config      *config.Config
	logger      *slog.Logger
	system      *engine.System
	rateLimiter *HTTPRateLimiter
	promServer  *http.Server
}

// New creates a server over an already constructed engine
func New(cfg *config.Config, system *engine.System, logger *slog.Logger) *Server {
	rateLimiter := NewHTTPRateLimiter(&RateLimiterConfig{
		DefaultRate:  cfg.RateLimitPerSecond,
		DefaultBurst: cfg.RateLimitBurst,
		PerIP:        true,
		PerEndpoint:  true,
	})

	mux := http.NewServeMux()
	engine.NewHandler(system, logger).Register(mux)

	handler := PerformanceMiddleware(system.Performance())(
		RateLimitMiddleware(rateLimiter)(mux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s := &Server{
		Server:      srv,
		config:      cfg,
		logger:      logger,
		system:      system,
		rateLimiter: rateLimiter,
	}

	if cfg.PrometheusPort != "" {
		promMux := http.NewServeMux()
		promMux.Handle("/metrics", promhttp.HandlerFor(system.Mirror().GetRegistry(), promhttp.HandlerOpts{}))
		s.promServer = &http.Server{
			Addr:              ":" + cfg.PrometheusPort,
			Handler:           promMux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	return s
}

// Start starts the engine loops and the HTTP listeners
func (s *Server) Start() error {
	s.system.Start()

	if s.promServer != nil {
		go func() {
			s.logger.Info("Starting Prometheus metrics server", "port", s.config.PrometheusPort)
			if err := s.promServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("Prometheus server error", "error", err)
			}
		}()
	}

	s.logger.Info("Starting HTTP server", "port", s.config.Port)
	return s.ListenAndServe()
}

// Shutdown gracefully stops the listeners and the engine
func (s *Server) Shutdown(ctx context.Context) error {
	if s.promServer != nil {
		if err := s.promServer.Shutdown(ctx); err != nil {
			s.logger.Error("Prometheus server shutdown failed", "error", err)
		}
	}

	err := s.Server.Shutdown(ctx)
	s.system.Stop()
	return err
}

// GetRateLimiter returns the rate limiter instance
func (s *Server) GetRateLimiter() *HTTPRateLimiter {
	return s.rateLimiter
}
