package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rather-labs/move-stylus-poc/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show movewasm's build fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "movewasm %s\n", version.Version)
		if version.GitCommit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", version.GitCommit)
		}
		return nil
	},
}
