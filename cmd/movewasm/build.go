package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [module.mv]",
	Short: "Compile a Move bytecode module to Stylus-targeted WASM",
	Long:  "Runs the full loader/layout/monomorphization/codegen/router pipeline and writes the assembled WASM binary.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringArray("dep", nil, "dependency module search directory (repeatable)")
	buildCmd.Flags().StringP("output", "o", "", "output WASM file (default: <module>.wasm)")
	buildCmd.Flags().Bool("no-cache", false, "bypass the on-disk compile cache")
}

func runBuild(cmd *cobra.Command, args []string) error {
	modulePath, depPaths, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(modulePath, filepath.Ext(modulePath)) + ".wasm"
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	var cache *driver.DiskCache
	if !noCache {
		cache, err = driver.OpenDiskCache("movewasm")
		if err != nil {
			return fmt.Errorf("opening compile cache: %w", err)
		}
	}

	result, err := driver.New(cache, reporter).Compile(modulePath, depPaths)
	bag.Sort()
	diag.PrintAll(os.Stderr, bag)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if bag.HasErrors() {
		return fmt.Errorf("build failed: %d diagnostic error(s)", bag.Len())
	}

	if err := os.WriteFile(outPath, result.Wasm, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", outPath, err)
	}
	fmt.Fprintf(os.Stdout, "built %s (%d bytes, %d entry point(s))\n", outPath, len(result.Wasm), len(result.Selectors))
	return nil
}
