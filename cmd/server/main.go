/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the approval engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and optional YAML config
  2. Initialize structured logger
  3. Initialize SQLite store (optionally seed demo data)
  4. Wire evaluator, service, handler, metrics
  5. Configure HTTP router and reminder scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080, overrides config)
  -db       SQLite database path (default: approvals.db)
            Use ":memory:" for in-memory database
  -config   Optional YAML config file path
  -seed     Load demo employees, balances, and calendar events

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the reminder scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database and demo data
  ./server -db="./data/approvals.db" -seed

  # Run with config file
  ./server -config=config.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: YAML configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp/approval-engine/api"
	"github.com/warp/approval-engine/approval"
	"github.com/warp/approval-engine/config"
	"github.com/warp/approval-engine/engine"
	"github.com/warp/approval-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "", "YAML config file path")
	seed := flag.Bool("seed", false, "load demo data on startup")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *seed {
		if err := api.SeedDemoData(ctx, store); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
		logger.Info("demo data loaded")
	}

	// Wire domain services
	evaluator := &engine.Evaluator{Thresholds: cfg.ThresholdSource()}
	notifier := &approval.LogNotifier{Logger: logger}
	service := approval.NewService(store, evaluator, notifier, logger)

	// Wire HTTP layer
	registry := prometheus.NewRegistry()
	metrics := api.NewMetrics(registry)
	handler := api.NewHandler(store, service, logger, metrics)
	router := api.NewRouter(handler, registry)

	// Reminder scheduler
	scheduler := api.NewReminderScheduler(store, service, logger,
		cfg.ReminderSchedule, time.Duration(cfg.StaleAfterHours)*time.Hour)
	if cfg.ReminderSchedule != "" {
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal("failed to start reminder scheduler", zap.Error(err))
		}
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop()
	logger.Info("server stopped")
}
