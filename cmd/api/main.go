// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"membitpulse/internal/adapter/events"
	"membitpulse/internal/adapter/flowise"
	"membitpulse/internal/adapter/membit"
	"membitpulse/internal/adapter/storage"
	"membitpulse/internal/adapter/upstream"
	"membitpulse/internal/config"
	"membitpulse/internal/domain/trend"
	"membitpulse/internal/logging"
	"membitpulse/internal/server"
	"membitpulse/internal/server/handlers"
	"membitpulse/internal/service/agent"
	"membitpulse/internal/service/chat"
	"membitpulse/internal/service/feed"
	"membitpulse/internal/service/listening"
	"membitpulse/internal/telemetry"
)

func main() {
	// A missing .env file is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.Log.Level)
	slog.Info("Configuration loaded", "config", cfg)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(registry)

	// Initialize optional infrastructure
	var publisher trend.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.Connect(cfg.NATS)
		if err != nil {
			slog.Warn("NATS unavailable, events disabled", "error", err)
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	snapshots := initSnapshotStore(ctx, cfg.Snapshot)

	// Initialize upstream clients
	clientOpts := []upstream.ClientOption{
		upstream.WithBreaker(cfg.Breaker),
		upstream.WithRecorder(metrics),
	}
	membitClient := membit.NewClient(cfg.Membit, clientOpts...)
	flowiseClient := flowise.NewClient(cfg.Flowise, clientOpts...)

	// Initialize services
	trendDetector := listening.NewTrendDetector(
		membitClient,
		listening.NewGenerator(nil),
		snapshots,
		publisher,
		metrics,
		listening.TrendDetectorConfig{
			MockCount: cfg.Membit.MockCount,
		},
	)

	orchestrator := agent.NewOrchestrator(
		membitClient,
		flowiseClient,
		publisher,
		metrics,
		agent.OrchestratorConfig{},
		nil,
	)

	chatProxy := chat.NewProxy(flowiseClient)

	// Start the live feed
	var trendFeed handlers.TrendFeed
	var poller *feed.Poller
	if cfg.Feed.Enabled {
		poller = feed.NewPoller(trendDetector, feed.PollerConfig{Interval: cfg.Feed.Interval})
		if err := poller.Start(); err != nil {
			slog.Error("Failed to start trend feed", "error", err)
			os.Exit(1)
		}
		trendFeed = poller
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		trendDetector,
		membitClient,
		orchestrator,
		chatProxy,
		trendFeed,
		metrics,
	)

	// Start HTTP server
	go func() {
		slog.Info("Starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	slog.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Stop the live feed
	if poller != nil {
		select {
		case <-poller.Stop().Done():
		case <-shutdownCtx.Done():
			slog.Warn("Trend feed did not stop in time")
		}
	}

	if closer, ok := snapshots.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Snapshot store close error", "error", err)
		}
	}

	slog.Info("Shutdown complete")
}

// initSnapshotStore prefers Redis so replicas share the last good snapshot,
// and falls back to process memory.
func initSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) trend.SnapshotStore {
	if cfg.RedisURL != "" {
		store, err := storage.NewRedisTrendStore(ctx, cfg.RedisURL, cfg.Key, cfg.TTL)
		if err == nil {
			slog.Info("Using Redis snapshot store")
			return store
		}
		slog.Warn("Redis unavailable, using in-memory snapshot store", "error", err)
	}
	return storage.NewMemoryTrendStore(cfg.TTL)
}
