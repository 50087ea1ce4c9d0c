package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/rsned/production-planner/pkg/production"
)

var (
	// fatih/color disables itself when stdout is not a TTY.
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// PrintSection prints a section header
func PrintSection(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w)
	_, _ = headerColor.Fprintf(w, "▸ %s\n", title)
}

// PrintSuccess prints a success message with a checkmark
func PrintSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

// PrintWarning prints a warning message with a warning symbol
func PrintWarning(w io.Writer, msg string) {
	_, _ = warningColor.Fprintf(w, "⚠ %s\n", msg)
}

// PrintError prints an error message
func PrintError(w io.Writer, msg string) {
	_, _ = errorColor.Fprintf(w, "✗ %s\n", msg)
}

// PrintLabelValue prints a label-value pair
func PrintLabelValue(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "  %s: ", label)
	_, _ = fmt.Fprintln(w, value)
}

// formatRate renders a per-minute quantity with thousands separators and
// at most two decimals.
func formatRate(r float64) string {
	return humanize.CommafWithDigits(r, 2)
}

// PrintGraph prints a human-readable summary of a solved flow graph.
func PrintGraph(w io.Writer, g *production.FlowGraph) {
	PrintSection(w, "Summary")
	PrintLabelValue(w, "Objective", fmt.Sprintf("%s (%s)", formatRate(g.Stats.Objective), g.Stats.Mode))
	PrintLabelValue(w, "Machines", formatRate(g.Stats.Machines))
	PrintLabelValue(w, "Power", formatRate(g.Stats.TotalPowerMW)+" MW")
	PrintLabelValue(w, "Area", formatRate(g.Stats.TotalAreaM2)+" m²")

	sections := []struct {
		title string
		kind  production.NodeKind
	}{
		{"Machines", production.NodeMachine},
		{"Inputs", production.NodeInput},
		{"Outputs", production.NodeOutput},
		{"Byproducts", production.NodeByproduct},
	}
	for _, sec := range sections {
		var nodes []production.Node
		for _, n := range g.Nodes {
			if n.Kind == sec.kind {
				nodes = append(nodes, n)
			}
		}
		if len(nodes) == 0 {
			continue
		}

		PrintSection(w, sec.title)
		for _, n := range nodes {
			unit := "/min"
			if n.Kind == production.NodeMachine {
				unit = " x"
			}
			_, _ = fmt.Fprintf(w, "  %-32s %12s%s", n.Label, formatRate(n.Rate), unit)
			if n.Kind == production.NodeMachine {
				_, _ = dimColor.Fprintf(w, "  %s MW", strconv.FormatFloat(n.PowerMW, 'f', -1, 64))
			}
			_, _ = fmt.Fprintln(w)
		}
	}

	if len(g.Edges) > 0 {
		PrintSection(w, "Flows")
		for _, e := range g.Edges {
			_, _ = fmt.Fprintf(w, "  %s -> %s  %s %s/min\n", e.Source, e.Target, e.ItemID, formatRate(e.Rate))
		}
	}

	for _, warning := range g.Warnings {
		PrintWarning(w, warning)
	}
}
