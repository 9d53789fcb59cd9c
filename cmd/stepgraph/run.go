package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/config"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/definition"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/runstore"
)

type runOptions struct {
	state    string
	maxSteps int
	format   string
	graphID  string
	timeout  time.Duration
	logRun   bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run <definition-file>",
		Short: "Run a graph definition once and print the result",
		Long: `Loads a graph definition (.json, .yaml, .yml or .hcl), runs it against the
initial state and prints the final state with its step log.

--state accepts inline JSON or a path to a JSON file. Flags left unset fall
back to the "run" section of the --config file (max_steps, format, timeout,
log_run).`,
		Example: `  stepgraph run review.yaml --state '{"code": "def f(): pass"}'
  stepgraph run review.hcl --state input.json --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyRunConfig(cmd, &opts); err != nil {
				return err
			}
			return a.run(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.state, "state", "", "Initial state as inline JSON or a JSON file path")
	flags.IntVar(&opts.maxSteps, "max-steps", stepgraph.DefaultMaxSteps, "Step budget")
	flags.StringVar(&opts.format, "format", formatJSON, "Output format: json or markdown")
	flags.StringVar(&opts.graphID, "graph-id", "", "Graph id recorded with the run (default: a new UUID)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Cancel the run after this long (0: no limit)")
	flags.BoolVar(&opts.logRun, "log-run", true, "Log run start, routing and completion")
	return cmd
}

// applyRunConfig fills options whose flags were not set from the "run"
// section of the --config file.
func (a *app) applyRunConfig(cmd *cobra.Command, opts *runOptions) error {
	if a.configPath == "" {
		return nil
	}
	file, err := config.FromFile(a.configPath)
	if err != nil {
		return err
	}
	if !file.Has("run") {
		return nil
	}
	section := file.Sub("run")

	flags := cmd.Flags()
	if !flags.Changed("max-steps") {
		opts.maxSteps = section.Int("max_steps", opts.maxSteps)
	}
	if !flags.Changed("format") {
		opts.format = section.String("format", opts.format)
	}
	if !flags.Changed("timeout") {
		opts.timeout = section.Duration("timeout", opts.timeout)
	}
	if !flags.Changed("log-run") {
		opts.logRun = section.Bool("log_run", opts.logRun)
	}
	return nil
}

// loadState reads --state as inline JSON when it looks like an object and
// as a file path otherwise.
func loadState(value string) (map[string]any, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return map[string]any{}, nil
	}

	data := []byte(value)
	if !strings.HasPrefix(value, "{") {
		fileData, err := os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("read state file: %w", err)
		}
		data = fileData
	}

	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if state == nil {
		state = map[string]any{}
	}
	return state, nil
}

func (a *app) run(ctx context.Context, path string, opts runOptions) error {
	if opts.maxSteps < 1 {
		return fmt.Errorf("--max-steps must be at least 1, got %d", opts.maxSteps)
	}
	if opts.timeout < 0 {
		return fmt.Errorf("--timeout must not be negative, got %s", opts.timeout)
	}
	render, err := rendererFor(opts.format, a.stdout)
	if err != nil {
		return err
	}

	def, err := definition.FromFile(path)
	if err != nil {
		return err
	}
	initial, err := loadState(opts.state)
	if err != nil {
		return err
	}

	graphID := opts.graphID
	if graphID == "" {
		graphID = uuid.New().String()
	}
	graph, err := definition.Build(def, a.registry(), definition.WithGraphID(graphID))
	if err != nil {
		return err
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	runCtx := stepgraph.NewContext(ctx,
		stepgraph.WithLogger(a.logger),
		stepgraph.WithContextRunID(runID))

	started := time.Now()
	runOpts := []stepgraph.RunOption{stepgraph.WithMaxSteps(opts.maxSteps)}
	if opts.logRun {
		runOpts = append(runOpts, stepgraph.WithObservabilityLogger(a.logger))
	}
	final, records, runErr := graph.Run(runCtx, stepgraph.NewState(initial), runOpts...)

	run := runstore.NewRecord(runID, graphID, started, final, records, runErr)
	if err := render(def.DisplayName(), run); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("workflow execution failed: %w", runErr)
	}
	return nil
}
