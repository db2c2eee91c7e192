// Package testutil holds helpers shared by package tests that need a real
// protocol store on disk.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/culturekernel/internal/corpus"
	"github.com/roach88/culturekernel/internal/protocol"
	"github.com/roach88/culturekernel/internal/store"
)

// Corpus returns the bundled corpus, failing the test if it does not load.
func Corpus(t testing.TB) *corpus.Corpus {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	return c
}

// DBPath returns a fresh store path inside a per-test temp dir.
func DBPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "culture.db")
}

// OpenStore opens the store at path and closes it when the test ends.
func OpenStore(t testing.TB, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// SeedStore writes records to the store at path, bypassing any integrity
// check, and closes it again.
func SeedStore(t testing.TB, path string, records []protocol.Protocol) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.ReplaceAll(t.Context(), records))
}

// StoredRecords reopens the store at path and returns its rows in seq order.
func StoredRecords(t testing.TB, path string) []store.Record {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ScanAll(t.Context())
	require.NoError(t, err)
	return records
}

// StoredIDs returns the ids stored at path in seq order.
func StoredIDs(t testing.TB, path string) []string {
	t.Helper()
	records := StoredRecords(t, path)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// Exec runs a raw statement against the store at path, for tests that
// simulate corruption or an incompatible writer.
func Exec(t testing.TB, path, query string, args ...any) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.DB().Exec(query, args...)
	require.NoError(t, err)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
