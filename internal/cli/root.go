package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/culturekernel/internal/config"
)

// Version is reported by the banner.
const Version = "1.0"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	ConfigPath string

	// Getenv reads environment overrides. Nil reads the process environment.
	Getenv func(string) string

	// Resolved in PersistentPreRunE.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the culture-kernel CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "culture-kernel",
		Short: "Culture Kernel - a catalog of governance protocols",
		Long: `Culture Kernel serves a fixed catalog of cultural governance protocols.

The catalog is bundled into the binary and mirrored into a local SQLite store.
Every start checks the store against the bundled catalog and reseeds it when
anything is missing, unknown or unreadable.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			banner := color.New(color.FgYellow, color.Bold)
			if opts.Config.Color {
				banner.EnableColor()
			} else {
				banner.DisableColor()
			}
			fmt.Fprintln(out, banner.Sprintf("Culture Kernel v%s", Version))
			fmt.Fprintln(out, "Run 'culture-kernel --help' for commands.")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", config.DefaultDatabase, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (.yaml, .yml or .toml)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// resolve validates global flags, layers configuration and builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath, o.Getenv)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if flag := cmd.Flags().Lookup("db"); flag != nil && flag.Changed {
		cfg.Database = o.Database
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}

	o.Config = cfg
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	return nil
}

// formatter returns an output formatter writing to the command's stdout.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
		Color:   o.Config.Color,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
