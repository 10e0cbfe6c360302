package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	awscloud "github.com/zgpcy/cloud-metrics-exporter/internal/aws"
	"github.com/zgpcy/cloud-metrics-exporter/internal/azure"
	"github.com/zgpcy/cloud-metrics-exporter/internal/collector"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
)

// Collector names in cloud mode
const (
	awsCostCollector    = "aws_cost"
	awsStorageCollector = "aws_storage"
	awsComputeCollector = "aws_compute"
	azureCostCollector  = "azure_cost"
)

func newCloudCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cloud",
		Short: "export AWS cost, S3 and EC2 metrics (and optionally Azure cost)",
		Long: "Polls AWS Cost Explorer, S3 and EC2 every refresh interval " +
			"(default 300s) and serves the gauges on port 8001 by default.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runExporter(opts, config.ModeCloud, setupCloud)
		},
	}
}

func setupCloud(ctx context.Context, cfg *config.Config, store *metrics.Store, registry *collector.Registry, log *logger.Logger) error {
	if cfg.AWSEnabled() {
		log.Info("Initializing AWS clients", "region", cfg.AWS.Region, "profile", cfg.AWS.Profile)
		client, err := awscloud.NewClient(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("new aws client: %w", err)
		}

		cost, err := collector.NewCostCollector(awsCostCollector, store, client, collector.AWSCostGauges, log)
		if err != nil {
			return fmt.Errorf("aws cost collector: %w", err)
		}
		storage, err := collector.NewStorageCollector(awsStorageCollector, store, client, log)
		if err != nil {
			return fmt.Errorf("aws storage collector: %w", err)
		}
		compute, err := collector.NewComputeCollector(awsComputeCollector, store, client, log)
		if err != nil {
			return fmt.Errorf("aws compute collector: %w", err)
		}

		for _, c := range []collector.Collector{cost, storage, compute} {
			if err := registry.Register(c); err != nil {
				return fmt.Errorf("register %s: %w", c.Name(), err)
			}
		}
	}

	if len(cfg.Azure.Subscriptions) > 0 {
		log.Info("Initializing Azure Cost Management client", "subscriptions", len(cfg.Azure.Subscriptions))
		client, err := azure.NewClient(cfg, log)
		if err != nil {
			return fmt.Errorf("new azure client: %w", err)
		}

		cost, err := collector.NewCostCollector(azureCostCollector, store, client, collector.AzureCostGauges, log)
		if err != nil {
			return fmt.Errorf("azure cost collector: %w", err)
		}
		if err := registry.Register(cost); err != nil {
			return fmt.Errorf("register %s: %w", cost.Name(), err)
		}
	}

	return nil
}
