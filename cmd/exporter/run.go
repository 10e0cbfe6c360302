package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/zgpcy/cloud-metrics-exporter/internal/collector"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/scheduler"
	"github.com/zgpcy/cloud-metrics-exporter/internal/server"
	"github.com/zgpcy/cloud-metrics-exporter/internal/version"
)

const (
	// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second
)

// setupFunc creates the mode's collectors and registers them
type setupFunc func(ctx context.Context, cfg *config.Config, store *metrics.Store, registry *collector.Registry, log *logger.Logger) error

// runExporter loads configuration for mode, wires the store, registry,
// scheduler and HTTP server, and blocks until SIGINT/SIGTERM or a fatal error
func runExporter(opts *rootOptions, mode config.Mode, setup setupFunc) error {
	cfg, err := config.Load(opts.configPath, mode)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Cloud Metrics Exporter starting",
		"mode", cfg.Mode,
		"version", version.Version,
		"config_path", opts.configPath)
	log.Info("Configuration loaded successfully",
		"http_port", cfg.HTTPPort,
		"refresh_interval_seconds", cfg.RefreshInterval,
		"api_timeout_seconds", cfg.APITimeout,
		"collect_timeout_seconds", cfg.CollectTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := metrics.NewStore()

	// Register Go runtime metrics (memory, goroutines, GC stats)
	if err := store.Registerer().Register(collectors.NewGoCollector()); err != nil {
		log.Warn("Failed to register Go collector", "error", err)
	}

	// Register process metrics (CPU, memory, file descriptors)
	if err := store.Registerer().Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		log.Warn("Failed to register process collector", "error", err)
	}

	registry, err := collector.NewRegistry(store, log,
		collector.WithCollectTimeout(time.Duration(cfg.CollectTimeout)*time.Second))
	if err != nil {
		return fmt.Errorf("new registry: %w", err)
	}

	if err := setup(ctx, cfg, store, registry, log); err != nil {
		return err
	}
	log.Info("Collectors registered", "count", registry.CollectorCount())

	srv, err := server.NewServer(cfg, registry, store.Handler(), log)
	if err != nil {
		return fmt.Errorf("new server: %w", err)
	}

	poller := scheduler.New(registry, time.Duration(cfg.RefreshInterval)*time.Second, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		err := poller.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Exporter stopped with error", "error", err)
		return err
	}

	log.Info("Exporter stopped gracefully", "ticks", poller.Ticks())
	return nil
}
