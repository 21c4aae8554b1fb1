package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/structura-app/adapter/internal/config"
)

// NewStatusCommand creates the status command group.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read or update element workflow status",
	}

	cmd.AddCommand(newStatusGetCommand(rootOpts))
	cmd.AddCommand(newStatusSetCommand(rootOpts))

	return cmd
}

func newStatusGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <stream-id> <model-id>",
		Short: "List element statuses for a synchronized model",
		Long: `List the workflow status of every element synchronized for a model.
An unsynchronized (stream, model) pair yields an empty list.

Example:
  adapter status get 3f1a2b4c9d 51cc82e6a1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusGet(cmd.Context(), rootOpts, args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func newStatusSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <status> <element-id>...",
		Short: "Set workflow status for element ids",
		Long: `Set the workflow status on every element row matching the given
durable element ids, across all synchronized models. Unknown ids touch
zero rows and are not an error.

Example:
  adapter status set approved 2Xa5qPq9H4BuwQ3A7d0aaa 0kF2qPq9H4BuwQ3A7d0bbb`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusSet(cmd.Context(), rootOpts, args[0], args[1:], cmd.OutOrStdout())
		},
	}
}

func runStatusGet(ctx context.Context, opts *RootOptions, streamID, modelID string, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	statuses, err := st.ElementStatuses(ctx, streamID, modelID)
	if err != nil {
		return WrapExitError(ExitFailure, "reading statuses failed", err)
	}

	payload := map[string]any{"items": statuses, "count": len(statuses)}
	return writeResult(out, opts.Format, payload, func(w io.Writer) {
		fmt.Fprintf(w, "%d elements\n", len(statuses))
		for _, s := range statuses {
			fmt.Fprintf(w, "  %-24s %s\n", s.GlobalID, s.Status)
		}
	})
}

func runStatusSet(ctx context.Context, opts *RootOptions, status string, ids []string, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	count, err := st.UpdateStatuses(ctx, ids, status)
	if err != nil {
		return WrapExitError(ExitFailure, "updating statuses failed", err)
	}

	payload := map[string]any{"status": status, "updated": count}
	return writeResult(out, opts.Format, payload, func(w io.Writer) {
		fmt.Fprintf(w, "Updated %d of %d elements to %q\n", count, len(ids), status)
	})
}
