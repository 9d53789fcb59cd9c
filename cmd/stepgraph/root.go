package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stepgraph/internal/codereview"
	"github.com/randalmurphal/stepgraph/internal/logging"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

// app carries what the root command sets up for its subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	logLevel   string
	logFormat  string
	configPath string

	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: logging.NewNop()}

	root := &cobra.Command{
		Use:   "stepgraph",
		Short: "stepgraph runs step graphs: nodes that transform a shared state, joined by fixed or routed edges",
		Long: `stepgraph executes graph workflows.

Graphs are described in JSON, YAML or HCL files whose nodes name registered
tools. Run one directly with "stepgraph run", or start the HTTP API with
"stepgraph serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			logger, err := logging.New(level, logging.Format(a.logFormat), a.stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format: text or json")
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML or JSON config file")

	root.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newToolsCmd(a),
		newValidateCmd(a),
	)
	return root
}

// registry returns the tools available to definitions.
func (a *app) registry() *tools.Registry {
	reg := tools.NewRegistry()
	codereview.Register(reg)
	return reg
}
