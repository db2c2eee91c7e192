package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/culturekernel/internal/seedguard"
)

// SeedResult is the JSON payload of the seed command.
type SeedResult struct {
	Database    string `json:"database"`
	Protocols   int    `json:"protocols"`
	Previous    string `json:"previous"`
	Quarantined string `json:"quarantined,omitempty"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the store contents with the bundled catalog",
		Long: `Unconditionally replace every stored protocol with the bundled catalog.

The replacement is a single transaction. Running seed twice leaves a
byte-identical store.

Example:
  culture-kernel seed
  culture-kernel seed --db /var/lib/culture.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, rootOpts)
		},
	}
	return cmd
}

func runSeed(cmd *cobra.Command, opts *RootOptions) error {
	c, err := loadCorpus()
	if err != nil {
		return err
	}

	g := seedguard.New(opts.Config.Database, c, seedguard.WithLogger(opts.Logger))
	st, outcome, err := g.Force(cmd.Context())
	if err != nil {
		_ = opts.formatter(cmd).Error("SEED_FAILED", "database seed failed", err.Error())
		return WrapExitError(ExitFailure, "seed failed", err)
	}
	closeStore(opts.Logger, st)

	result := SeedResult{
		Database:    opts.Config.Database,
		Protocols:   outcome.Final.Total,
		Previous:    string(outcome.Initial.Reason),
		Quarantined: outcome.Quarantined,
	}
	return opts.formatter(cmd).Success(
		fmt.Sprintf("Database seeded successfully. (%d protocols)", result.Protocols),
		result,
	)
}
