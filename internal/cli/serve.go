package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/culturekernel/internal/api"
	"github.com/roach88/culturekernel/internal/render"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Long: `Check the store, reseed it if needed, then serve the catalog.

GET /rituals (and /protocols) returns a plain-text table to command-line
clients such as curl and a JSON array to everything else. Send
"Accept: application/json" or "Accept: text/plain" to choose explicitly.

Example:
  culture-kernel serve
  culture-kernel serve --port 3000
  culture-kernel serve --addr 127.0.0.1:8080 --db /var/lib/culture.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 8080, "listen port (overrides the port in --addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := opts.Config
	if cmd.Flags().Changed("addr") {
		cfg.Addr = opts.Addr
	}
	if cmd.Flags().Changed("port") {
		var err error
		if cfg, err = cfg.WithPort(opts.Port); err != nil {
			return WrapExitError(ExitCommandError, "invalid --port", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid listen address", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, _, err := prepareCatalog(ctx, opts.RootOptions)
	if err != nil {
		return err
	}

	memo := render.NewMemo(render.Renderer{}, cache)
	srv := api.New(cfg.Addr, memo, api.WithLogger(opts.Logger))

	ln, err := srv.Listen(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	opts.formatter(cmd).Notice(color.FgCyan, fmt.Sprintf("Starting Culture Kernel API on %s", ln.Addr()))

	if err := srv.Serve(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	opts.Logger.Info("server stopped gracefully")
	return nil
}
