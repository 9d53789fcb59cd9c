package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/runstore"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type renderFunc func(name string, run *runstore.Run) error

func rendererFor(format string, w io.Writer) (renderFunc, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		return func(_ string, run *runstore.Run) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}, nil
	case formatMarkdown, "md":
		return func(name string, run *runstore.Run) error {
			md, err := runMarkdown(name, run)
			if err != nil {
				return err
			}
			out, err := styleMarkdown(md, w)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, out)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want json or markdown)", format)
	}
}

// runMarkdown formats a run as a markdown report.
func runMarkdown(name string, run *runstore.Run) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", run.RunID)
	fmt.Fprintf(&b, "- **Graph:** `%s`\n", run.GraphID)
	fmt.Fprintf(&b, "- **Status:** %s\n", run.Status)
	fmt.Fprintf(&b, "- **Duration:** %s\n", run.FinishedAt.Sub(run.CreatedAt).Round(time.Millisecond))
	if run.Error != "" {
		fmt.Fprintf(&b, "- **Error:** %s\n", run.Error)
	}

	b.WriteString("\n## Steps\n\n| Step | Node | Time |\n|---:|---|---|\n")
	for _, rec := range run.Logs {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", rec.Step, rec.NodeName, rec.Timestamp.Format("15:04:05.000"))
	}

	state, err := json.MarshalIndent(run.FinalState, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal final state: %w", err)
	}
	fmt.Fprintf(&b, "\n## Final state\n\n```json\n%s\n```\n", state)
	return b.String(), nil
}

// styleMarkdown renders md with glamour when w is a terminal and returns
// it untouched otherwise.
func styleMarkdown(md string, w io.Writer) (string, error) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return md, nil
	}

	width := 100
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
		width = cols
	}
	output := termenv.NewOutput(f)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithColorProfile(output.ColorProfile()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
