package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/culturekernel/internal/catalog"
	"github.com/roach88/culturekernel/internal/corpus"
	"github.com/roach88/culturekernel/internal/seedguard"
	"github.com/roach88/culturekernel/internal/store"
)

// loadCorpus returns the bundled corpus or a command error.
func loadCorpus() (*corpus.Corpus, error) {
	c, err := corpus.Default()
	if err != nil {
		return nil, WrapExitError(ExitFailure, "bundled catalog is invalid", err)
	}
	return c, nil
}

// prepareCatalog runs the startup integrity pass against the configured store
// and loads the catalog cache from it. The store is closed before returning;
// everything after this point is served from memory.
func prepareCatalog(ctx context.Context, opts *RootOptions) (*catalog.Cache, seedguard.Outcome, error) {
	c, err := loadCorpus()
	if err != nil {
		return nil, seedguard.Outcome{}, err
	}

	g := seedguard.New(opts.Config.Database, c, seedguard.WithLogger(opts.Logger))
	st, outcome, err := g.Ensure(ctx)
	if err != nil {
		return nil, outcome, WrapExitError(ExitFailure, "failed to prepare store", err)
	}
	defer closeStore(opts.Logger, st)

	cache, err := catalog.Load(ctx, st)
	if err != nil {
		return nil, outcome, WrapExitError(ExitFailure, "failed to load catalog", err)
	}
	opts.Logger.Debug("catalog loaded", "protocols", cache.Len())
	return cache, outcome, nil
}

func closeStore(logger *slog.Logger, st *store.Store) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
