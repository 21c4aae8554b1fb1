package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/structura-app/adapter/internal/config"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <stream-id> <model-id>",
		Short: "Synchronize one model into the relational store",
		Long: `Resolve a model's latest version, extract its elements, and persist
the snapshot. Safe to re-run: an identical resync leaves the stored
element set unchanged, and user-assigned status survives.

Example:
  adapter sync 3f1a2b4c9d 51cc82e6a1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), rootOpts, args[0], args[1], cmd.OutOrStdout())
		},
	}

	return cmd
}

func runSync(ctx context.Context, opts *RootOptions, streamID, modelID string, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	svc, err := buildService(cfg, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build service", err)
	}

	summary, err := svc.Sync(ctx, streamID, modelID)
	if err != nil {
		return WrapExitError(ExitFailure, "sync failed", err)
	}

	return writeResult(out, opts.Format, summary, func(w io.Writer) {
		fmt.Fprintf(w, "Synchronized %s/%s\n", streamID, modelID)
		fmt.Fprintf(w, "  version:  %s\n", summary.ObjectID)
		fmt.Fprintf(w, "  project:  %d\n", summary.Details.ProjectID)
		fmt.Fprintf(w, "  model:    %d\n", summary.Details.ModelID)
		fmt.Fprintf(w, "  elements: %d\n", summary.Details.ElementsCount)
	})
}
