package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/structura-app/adapter/internal/config"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	Limit             int
	IncludeAssemblies bool
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtractOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "extract <stream-id> <model-id>",
		Short: "Extract a model's elements without persisting",
		Long: `Resolve a model's latest version, receive its object graph, and print
the flattened element list. Nothing is written to the store.

Example:
  adapter extract 3f1a2b4c9d 51cc82e6a1 --limit 50
  adapter extract 3f1a2b4c9d 51cc82e6a1 --include-assemblies --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), opts, args[0], args[1], cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum elements to emit (0 = configured default)")
	cmd.Flags().BoolVar(&opts.IncludeAssemblies, "include-assemblies", false, "emit assembly container nodes as elements")

	return cmd
}

func runExtract(ctx context.Context, opts *ExtractOptions, streamID, modelID string, out io.Writer) error {
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

	result, err := svc.Debug(ctx, streamID, modelID, opts.Limit, opts.IncludeAssemblies)
	if err != nil {
		return WrapExitError(ExitFailure, "extraction failed", err)
	}

	return writeResult(out, opts.Format, result, func(w io.Writer) {
		fmt.Fprintf(w, "Version %s: %d elements\n", result.ObjectID, result.Count)
		for _, el := range result.Items {
			fmt.Fprintf(w, "  %-24s %-20s %s\n", el.StableID, el.SimpleType, el.Name)
		}
	})
}
