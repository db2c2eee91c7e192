package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/culturekernel/internal/corpus"
	"github.com/roach88/culturekernel/internal/seedguard"
	"github.com/roach88/culturekernel/internal/store"
)

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Database       string   `json:"database"`
	Healthy        bool     `json:"healthy"`
	Reason         string   `json:"reason"`
	Stored         int      `json:"stored"`
	Expected       int      `json:"expected"`
	DecodeFailures int      `json:"decode_failures"`
	Missing        []string `json:"missing,omitempty"`
	Unknown        []string `json:"unknown,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether the store matches the bundled catalog",
		Long: `Inspect the store without repairing it.

Exits 0 when the store is healthy and 1 when the next start would reseed it.

Example:
  culture-kernel check
  culture-kernel check --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts)
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command, opts *RootOptions) error {
	c, err := loadCorpus()
	if err != nil {
		return err
	}

	verdict := inspectPath(cmd.Context(), opts, c)
	opts.Logger.Debug("store inspected", "path", opts.Config.Database, "verdict", verdict.String())

	result := CheckResult{
		Database:       opts.Config.Database,
		Healthy:        verdict.Healthy,
		Reason:         string(verdict.Reason),
		Stored:         verdict.Total,
		Expected:       verdict.Expected,
		DecodeFailures: verdict.DecodeFailures,
		Missing:        verdict.Missing,
		Unknown:        verdict.Unknown,
	}

	f := opts.formatter(cmd)
	if verdict.Healthy {
		return f.Success("Store "+verdict.String(), result)
	}
	_ = f.Error("UNHEALTHY", "store "+verdict.String(), result)
	return NewExitError(ExitFailure, "store unhealthy")
}

// inspectPath opens the store read-only and inspects it. The file is never
// created or written: a missing file or one without the protocols table is
// reported as empty.
func inspectPath(ctx context.Context, opts *RootOptions, c *corpus.Corpus) seedguard.Verdict {
	path := opts.Config.Database
	expected := c.Count()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return seedguard.Verdict{Reason: seedguard.ReasonEmpty, Expected: expected}
	}

	st, err := store.OpenReadOnly(path)
	if err != nil {
		return seedguard.Verdict{Reason: seedguard.ReasonUnreadable, Expected: expected, Err: err}
	}
	defer closeStore(opts.Logger, st)

	ok, err := st.Initialized(ctx)
	if err != nil {
		return seedguard.Verdict{Reason: seedguard.ReasonUnreadable, Expected: expected, Err: err}
	}
	if !ok {
		return seedguard.Verdict{Reason: seedguard.ReasonEmpty, Expected: expected}
	}
	return seedguard.Inspect(ctx, st, c)
}
