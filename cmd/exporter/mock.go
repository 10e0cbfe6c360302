package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zgpcy/cloud-metrics-exporter/internal/collector"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
)

func newMockCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mock",
		Short: "export synthetic random-walk metrics",
		Long: "Serves bounded random-walk gauges that advance every refresh " +
			"interval (default 5s) on port 8000 by default. No cloud credentials needed.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runExporter(opts, config.ModeMock, setupMock)
		},
	}
}

func setupMock(_ context.Context, cfg *config.Config, store *metrics.Store, registry *collector.Registry, log *logger.Logger) error {
	for _, walk := range cfg.Mock.Walks {
		c, err := collector.NewRandomWalkCollector(store, walk, nil)
		if err != nil {
			return fmt.Errorf("random walk %s: %w", walk.Name, err)
		}
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("register %s: %w", c.Name(), err)
		}
		log.Debug("Registered random walk",
			"gauge", walk.Name,
			"initial", walk.Initial,
			"step", walk.Step,
			"min", walk.Min,
			"max", walk.Max)
	}
	return nil
}
