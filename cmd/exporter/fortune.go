package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zgpcy/cloud-metrics-exporter/internal/fortune"
)

func newFortuneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fortune",
		Short: "print a random fortune",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			teller, err := fortune.NewTeller(fortune.Default, nil)
			if err != nil {
				return fmt.Errorf("new teller: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), teller.Tell())
			return nil
		},
	}
}
