// Package seedguard keeps the protocol store consistent with the bundled corpus.
//
// Detection and repair are separate steps:
//   - Inspect scans and decodes the store and returns a Verdict
//   - Repair atomically replaces the store contents with the corpus
//
// Guard composes them into the startup pass that must finish before any
// request is served. A store is healthy iff every row decodes, the row count
// equals the corpus count, and the decoded id set equals the corpus id set.
// Anything else (empty, unknown ids, missing ids, bit-rot, rows written by an
// incompatible binary) triggers a full reseed. There is no incremental
// migration; the corpus is the only versioning authority.
package seedguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/culturekernel/internal/corpus"
	"github.com/roach88/culturekernel/internal/protocol"
	"github.com/roach88/culturekernel/internal/store"
)

// ErrReseedFailed is returned when the store could not be brought to a
// healthy state. It is fatal: the catalog must not be served.
var ErrReseedFailed = errors.New("reseed failed")

// Scanner reads every stored record in insertion order.
type Scanner interface {
	ScanAll(ctx context.Context) ([]store.Record, error)
}

// Replacer atomically replaces the stored catalog.
type Replacer interface {
	ReplaceAll(ctx context.Context, records []protocol.Protocol) error
}

// Inspect validates the store contents against the corpus.
//
// Inspect never fails: a store that cannot be scanned yields an unhealthy
// verdict with ReasonUnreadable and the scan error attached.
func Inspect(ctx context.Context, st Scanner, c *corpus.Corpus) Verdict {
	v := Verdict{Expected: c.Count()}

	records, err := st.ScanAll(ctx)
	if err != nil {
		v.Reason = ReasonUnreadable
		v.Err = err
		return v
	}
	v.Total = len(records)

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		p, err := store.Decode(r)
		if err != nil {
			v.DecodeFailures++
			continue
		}
		seen[p.ProtocolID] = true
		if !c.Contains(p.ProtocolID) {
			v.Unknown = append(v.Unknown, p.ProtocolID)
		}
	}
	for _, id := range c.IDs() {
		if !seen[id] {
			v.Missing = append(v.Missing, id)
		}
	}

	switch {
	case v.Total == 0:
		v.Reason = ReasonEmpty
	case v.DecodeFailures > 0:
		v.Reason = ReasonDecodeFailure
	case len(v.Unknown) > 0:
		v.Reason = ReasonUnknownIDs
	case len(v.Missing) > 0:
		v.Reason = ReasonMissingIDs
	case v.Total != v.Expected:
		v.Reason = ReasonCountMismatch
	default:
		v.Healthy = true
		v.Reason = ReasonHealthy
	}
	return v
}

// Repair replaces the store contents with the corpus records in corpus order.
// Running it on an already-healthy store rewrites byte-identical content.
func Repair(ctx context.Context, st Replacer, c *corpus.Corpus) error {
	if err := st.ReplaceAll(ctx, c.Records()); err != nil {
		return fmt.Errorf("%w: %w", ErrReseedFailed, err)
	}
	return nil
}

// Outcome describes what a Guard pass found and did.
type Outcome struct {
	// Initial is the verdict before any repair.
	Initial Verdict

	// Final is the verdict after the pass; always healthy on success.
	Final Verdict

	// Reseeded is true if Repair ran.
	Reseeded bool

	// Quarantined is where an unreadable store file was moved, if any.
	Quarantined string
}

// Guard runs the startup integrity check for one store file.
type Guard struct {
	path   string
	corpus *corpus.Corpus
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = l
	}
}

// WithClock overrides the time source used to name quarantined files.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// New creates a Guard for the store at path.
func New(path string, c *corpus.Corpus, opts ...Option) *Guard {
	g := &Guard{
		path:   path,
		corpus: c,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ensure opens the store, validates it, and reseeds it if unhealthy.
//
// On success the returned store is open, healthy, and owned by the caller.
// Any error matches ErrReseedFailed and the process must not serve traffic.
func (g *Guard) Ensure(ctx context.Context) (*store.Store, Outcome, error) {
	return g.run(ctx, false)
}

// Force reseeds the store unconditionally, even if it is already healthy.
func (g *Guard) Force(ctx context.Context) (*store.Store, Outcome, error) {
	return g.run(ctx, true)
}

func (g *Guard) run(ctx context.Context, force bool) (*store.Store, Outcome, error) {
	var out Outcome

	st, quarantined, openErr, err := g.open()
	out.Quarantined = quarantined
	if err != nil {
		out.Initial = Verdict{Reason: ReasonUnreadable, Expected: g.corpus.Count(), Err: openErr}
		out.Final = out.Initial
		return nil, out, err
	}

	if openErr != nil {
		out.Initial = Verdict{Reason: ReasonUnreadable, Expected: g.corpus.Count(), Err: openErr}
	} else {
		out.Initial = Inspect(ctx, st, g.corpus)
	}

	if out.Initial.Healthy && !force {
		g.logger.Info("store healthy", "path", g.path, "protocols", out.Initial.Total)
		out.Final = out.Initial
		return st, out, nil
	}

	if force {
		g.logger.Info("forcing reseed", "path", g.path, "verdict", out.Initial.String())
	} else {
		g.logger.Warn("store unhealthy, reseeding",
			"path", g.path,
			"reason", string(out.Initial.Reason),
			"stored", out.Initial.Total,
			"expected", out.Initial.Expected,
			"decode_failures", out.Initial.DecodeFailures,
			"missing", len(out.Initial.Missing),
			"unknown", len(out.Initial.Unknown),
		)
	}

	if err := Repair(ctx, st, g.corpus); err != nil {
		st.Close()
		out.Final = out.Initial
		return nil, out, err
	}
	out.Reseeded = true

	out.Final = Inspect(ctx, st, g.corpus)
	if !out.Final.Healthy {
		st.Close()
		return nil, out, fmt.Errorf("%w: store still unhealthy after reseed: %s", ErrReseedFailed, out.Final)
	}

	g.logger.Info("reseed complete", "path", g.path, "protocols", out.Final.Total)
	return st, out, nil
}

// open opens the store, quarantining and recreating the file if the storage
// engine cannot read it. openErr is the original failure, if any; err is
// non-nil only when no usable store could be produced.
func (g *Guard) open() (st *store.Store, quarantined string, openErr error, err error) {
	st, openErr = store.Open(g.path)
	if openErr == nil {
		return st, "", nil, nil
	}

	g.logger.Warn("store unreadable", "path", g.path, "error", openErr)

	quarantined, qErr := store.Quarantine(g.path, g.now())
	if qErr != nil {
		return nil, "", openErr, fmt.Errorf("%w: %w", ErrReseedFailed, errors.Join(openErr, qErr))
	}
	if quarantined != "" {
		g.logger.Warn("moved unreadable store aside", "path", g.path, "to", quarantined)
	}

	st, err = store.Open(g.path)
	if err != nil {
		return nil, quarantined, openErr, fmt.Errorf("%w: %w", ErrReseedFailed, err)
	}
	return st, quarantined, openErr, nil
}
