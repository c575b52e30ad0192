package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rather-labs/move-stylus-poc/internal/driver"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [module.mv]",
	Short: "Run the loader and layout stages and print the module's declarations",
	Long:  "Loads a module and its dependencies and prints its function/struct/enum tables together with the layouts computed for them, without monomorphizing or generating code.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringArray("dep", nil, "dependency module search directory (repeatable)")
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	rootBadge    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")).Render(" (root)")
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func runInspect(cmd *cobra.Command, args []string) error {
	modulePath, depPaths, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}
	reports, err := driver.Inspect(modulePath, depPaths)
	if err != nil {
		return err
	}
	for _, r := range reports {
		printModuleReport(os.Stdout, r)
	}
	return nil
}

func printModuleReport(w io.Writer, r driver.ModuleReport) {
	title := "module " + r.Name
	if r.IsRoot {
		title += rootBadge
	}
	fmt.Fprintln(w, headingStyle.Render(title))

	if len(r.Functions) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("  functions"))
		for _, f := range r.Functions {
			tag := f.Visibility
			if f.IsNative {
				tag += " native"
			}
			if f.IsInit {
				tag += " init"
			}
			sig := fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Params, ", "))
			if len(f.Results) > 0 {
				sig += ": " + strings.Join(f.Results, ", ")
			}
			fmt.Fprintf(w, "    %-24s %s\n", tagStyle.Render(tag), sig)
		}
	}

	if len(r.Structs) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("  structs"))
		for _, s := range r.Structs {
			if s.LayoutErr != "" {
				fmt.Fprintf(w, "    %s  %s\n", s.Name, errStyle.Render(s.LayoutErr))
				continue
			}
			obj := ""
			if s.IsObject {
				obj = " object"
			}
			fmt.Fprintf(w, "    %s  size=%d align=%d%s\n", s.Name, s.MemSize, s.MemAlign, obj)
			for _, f := range s.Fields {
				fmt.Fprintf(w, "      +%-4d %-20s %s\n", f.Offset, f.Name, f.Type)
			}
		}
	}

	if len(r.Enums) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("  enums"))
		for _, e := range r.Enums {
			fmt.Fprintf(w, "    %s\n", e.Name)
			for _, v := range e.Variants {
				fmt.Fprintf(w, "      %s\n", v)
			}
		}
	}
	fmt.Fprintln(w)
}
