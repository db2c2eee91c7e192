package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/culturekernel/internal/render"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Detail bool
	Color  bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the protocol catalog",
		Long: `Check the store, reseed it if needed, then print every protocol.

Text format prints a table; --format json prints the full records as a JSON
array, the same document GET /rituals returns to JSON clients.

Example:
  culture-kernel list
  culture-kernel list --detail
  culture-kernel list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Detail, "detail", "d", false, "show mechanism, modern script and guardrails")
	cmd.Flags().BoolVar(&opts.Color, "color", true, "colorize table output (default from config)")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	mode, err := render.ParseMode(opts.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid format", err)
	}

	useColor := opts.Config.Color
	if cmd.Flags().Changed("color") {
		useColor = opts.Color
	}

	cache, _, err := prepareCatalog(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}

	r := render.Renderer{
		Color:  useColor,
		Detail: opts.Detail,
		Indent: true,
	}
	out, err := r.Render(cache, mode)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render catalog", err)
	}

	if _, err := cmd.OutOrStdout().Write(out.Body); err != nil {
		return WrapExitError(ExitFailure, "failed to write output", err)
	}
	return nil
}
