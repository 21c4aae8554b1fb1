package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/structura-app/adapter/internal/config"
	"github.com/structura-app/adapter/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front door",
		Long: `Run the adapter's HTTP server.

Routes:
  GET  /health
  GET  /debug/{stream}/{model}        extract without persisting
  POST /sync/{stream}/{model}         synchronize a model snapshot
  GET  /project-data/{stream}/{model} element workflow statuses
  POST /update-status                 set status for element ids

Example:
  adapter serve --config adapter.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts)
		},
	}

	return cmd
}

func runServe(opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	st, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	svc, err := buildService(cfg, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build service", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: server.NewRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "http server failed", err)
		}
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return WrapExitError(ExitFailure, "shutdown failed", err)
		}
	}

	return nil
}
