// Package main provides the entry point for the pulsemon monitoring
// engine: metric collection, threshold alerting and the HTTP query API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlet99/pulsemon/internal/config"
	"github.com/atlet99/pulsemon/internal/engine"
	"github.com/atlet99/pulsemon/internal/server"
	"github.com/atlet99/pulsemon/internal/version"
	"github.com/atlet99/pulsemon/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()

	// Log startup information
	log.Info("Starting pulsemon",
		"version", version.GetVersion(),
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Construct the engine. The connection pool provider is wired by
	// the embedding application; standalone mode runs without one and
	// the pool collector reports unknown.
	system, err := engine.New(cfg, nil, log)
	if err != nil {
		log.Error("Failed to construct engine", "error", err)
		os.Exit(1)
	}

	// Create server
	srv := server.New(cfg, system, log)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Create a deadline for server shutdown
	const shutdownTimeout = 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
