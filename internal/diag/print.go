package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	locColor   = color.New(color.Faint)
)

func colorFor(sev Severity) *color.Color {
	switch sev {
	case SevError:
		return errorColor
	case SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

// Print renders a single diagnostic to w with severity-colored output.
func Print(w io.Writer, d Diagnostic) {
	c := colorFor(d.Severity)
	c.Fprintf(w, "%s", d.Severity.String())
	fmt.Fprintf(w, " [%s] ", d.Code)
	locColor.Fprintf(w, "%s: ", d.At.String())
	fmt.Fprintln(w, d.Message)
	for _, n := range d.Notes {
		locColor.Fprintf(w, "    note at %s: ", n.At.String())
		fmt.Fprintln(w, n.Msg)
	}
}

// PrintAll renders every diagnostic in the bag, in bag order.
// Callers typically call Bag.Sort() first for deterministic output.
func PrintAll(w io.Writer, b *Bag) {
	if b == nil {
		return
	}
	for _, d := range b.Items() {
		Print(w, d)
	}
}
