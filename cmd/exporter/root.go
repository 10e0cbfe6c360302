package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cloud-metrics-exporter",
		Short: "Prometheus exporter for cloud cost, storage and compute metrics",
		Long: "cloud-metrics-exporter polls cloud APIs (or a synthetic random walk) on a " +
			"fixed interval and serves the results as Prometheus gauges.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config",
		"", "path to a YAML configuration file (optional; defaults and "+
			"environment variables apply without one)")
	_ = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")

	cmd.AddCommand(
		newCloudCommand(opts),
		newMockCommand(opts),
		newFortuneCommand(),
		versionCmd,
	)

	return cmd
}
