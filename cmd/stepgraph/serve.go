package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stepgraph/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the HTTP API with the code review workflow preloaded.

Settings come from the defaults, then --config, then STEPGRAPH_* environment
variables, then the flags below.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := server.LoadConfig(a.configPath, os.Environ())
			if err != nil {
				return err
			}
			if err := applyServeFlags(cmd, &cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (default from config, :8000)")
	flags.String("store", "", "Run store: memory, sqlite or redis")
	flags.String("sqlite-path", "", "SQLite database path for --store sqlite")
	flags.String("redis-addr", "", "Redis address for --store redis")
	flags.Int("max-steps", 0, "Default step budget for runs that do not set max_steps")
	return cmd
}

// applyServeFlags overlays explicitly set flags on cfg.
func applyServeFlags(cmd *cobra.Command, cfg *server.Config) error {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("store") {
		cfg.Store, _ = flags.GetString("store")
	}
	if flags.Changed("sqlite-path") {
		cfg.SQLitePath, _ = flags.GetString("sqlite-path")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("max-steps") {
		cfg.DefaultMaxSteps, _ = flags.GetInt("max-steps")
	}
	return cfg.Validate()
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func (a *app) serve(ctx context.Context, cfg server.Config) error {
	runs, err := cfg.OpenRunStore(ctx)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if err := runs.Close(); err != nil {
			a.logger.Error("failed to close run store", "error", err)
		}
	}()

	graphs := server.NewGraphStore()
	reg := a.registry()
	server.PreloadDefaults(graphs, reg)

	api := server.New(cfg, graphs, runs, reg, a.logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			"addr", cfg.Addr,
			"store", cfg.Store,
			"graphs", graphs.Len(),
			"tools", reg.Len())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		a.logger.Info("shutdown started", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("graceful shutdown did not complete", "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("close server: %w", err)
			}
		}
		a.logger.Info("server stopped")
		return nil
	}
}
