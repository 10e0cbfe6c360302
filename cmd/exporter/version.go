package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zgpcy/cloud-metrics-exporter/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version of this CLI",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
