// Package main implements the movewasm CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "movewasm",
	Short: "Move-bytecode-to-Stylus-WASM compiler",
	Long:  "movewasm lowers compiled Move bytecode modules into WASM binaries targeting the Arbitrum Stylus ABI.",
}

func main() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(selectorsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("target", "wasm32", "compilation target (wasm32 is the only target today)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
