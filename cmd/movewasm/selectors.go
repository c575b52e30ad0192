package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/driver"
)

var selectorsCmd = &cobra.Command{
	Use:   "selectors [module.mv]",
	Short: "Print the router's 4-byte selector table without compiling",
	Long:  "Runs the loader and layout stages only, and prints every public root-module function's Solidity-style selector for wiring into Solidity-side test harnesses.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSelectors,
}

func init() {
	selectorsCmd.Flags().StringArray("dep", nil, "dependency module search directory (repeatable)")
	selectorsCmd.Flags().Bool("json", false, "emit the table as JSON")
}

type selectorJSON struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
}

func runSelectors(cmd *cobra.Command, args []string) error {
	modulePath, depPaths, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	entries, err := driver.Selectors(modulePath, depPaths, reporter)
	bag.Sort()
	diag.PrintAll(os.Stderr, bag)
	if err != nil {
		return err
	}

	if asJSON {
		out := make([]selectorJSON, len(entries))
		for i, e := range entries {
			out[i] = selectorJSON{Name: e.Name, Signature: e.Signature, Selector: "0x" + hex.EncodeToString(e.Selector[:])}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, e := range entries {
		fmt.Fprintf(os.Stdout, "0x%s  %s\n", hex.EncodeToString(e.Selector[:]), e.Signature)
	}
	return nil
}
