package main

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools and routers",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			out := termenv.NewOutput(a.stdout)
			return writeToolTable(a.stdout, a.registry(), func(s string) string {
				return out.String(s).Bold().String()
			})
		},
	}
}

// writeToolTable aligns the listing as plain text and styles the heading
// rows afterwards, so escape sequences never count toward column widths.
func writeToolTable(w io.Writer, reg *tools.Registry, heading func(string) string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	headings := map[int]bool{0: true}
	rows := 1
	fmt.Fprintln(tw, "TOOL\tDESCRIPTION")
	descriptions := reg.Descriptions()
	for _, name := range reg.List() {
		fmt.Fprintf(tw, "%s\t%s\n", name, descriptions[name])
		rows++
	}

	routers := reg.Routers()
	if len(routers) > 0 {
		fmt.Fprintln(tw, "\t")
		headings[rows+1] = true
		fmt.Fprintln(tw, "ROUTER\tDESCRIPTION")
		for _, name := range slices.Sorted(maps.Keys(routers)) {
			fmt.Fprintf(tw, "%s\t%s\n", name, routers[name])
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.SplitAfter(buf.String(), "\n")
	for i, line := range lines {
		if headings[i] {
			text := strings.TrimRight(line, "\n")
			line = heading(text) + line[len(text):]
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
