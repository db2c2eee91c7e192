package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/culturekernel/internal/corpus"
	"github.com/roach88/culturekernel/internal/protocol"
	"github.com/roach88/culturekernel/internal/store"
	"github.com/roach88/culturekernel/internal/testutil"
)

func seededStore(t *testing.T) (*store.Store, *corpus.Corpus) {
	t.Helper()
	c := testutil.Corpus(t)
	path := testutil.DBPath(t)
	testutil.SeedStore(t, path, c.Records())
	return testutil.OpenStore(t, path), c
}

func TestLoad_PreservesCorpusOrder(t *testing.T) {
	st, c := seededStore(t)

	cache, err := Load(t.Context(), st)
	require.NoError(t, err)

	assert.Equal(t, c.Count(), cache.Len())
	assert.Equal(t, c.IDs(), cache.IDs())

	want := c.Records()
	for i, got := range cache.All() {
		assert.True(t, want[i].Equal(got), "record %d differs", i)
	}
}

func TestLoad_DecodeFailureIsError(t *testing.T) {
	st, _ := seededStore(t)
	_, err := st.DB().Exec(`UPDATE protocols SET body = 'nope' WHERE seq = 2`)
	require.NoError(t, err)

	_, err = Load(t.Context(), st)
	require.Error(t, err)
	assert.True(t, protocol.IsDecodeError(err))
}

func TestLoad_ScanFailureIsError(t *testing.T) {
	scanErr := errors.New("boom")

	_, err := Load(t.Context(), failingScanner{err: scanErr})
	assert.ErrorIs(t, err, scanErr)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	p := protocol.Protocol{ProtocolID: "a"}

	_, err := New([]protocol.Protocol{p, p})
	require.Error(t, err)
}

func TestCache_IsImmutable(t *testing.T) {
	c, err := corpus.Default()
	require.NoError(t, err)

	source := c.Records()
	cache, err := New(source)
	require.NoError(t, err)

	// Mutating the input or an output copy must not leak into the cache
	source[0].Name = "mutated"
	all := cache.All()
	all[1].EthicalGuardrails[0] = "mutated"

	got0, ok := cache.Get(source[0].ProtocolID)
	require.True(t, ok)
	assert.NotEqual(t, "mutated", got0.Name)

	got1, ok := cache.Get(all[1].ProtocolID)
	require.True(t, ok)
	assert.NotEqual(t, "mutated", got1.EthicalGuardrails[0])

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestCache_Each(t *testing.T) {
	c, err := corpus.Default()
	require.NoError(t, err)
	cache, err := New(c.Records())
	require.NoError(t, err)

	var ids []string
	cache.Each(func(i int, p *protocol.Protocol) {
		assert.Len(t, ids, i)
		ids = append(ids, p.ProtocolID)
	})
	assert.Equal(t, c.IDs(), ids)
}

func TestCache_ConcurrentReaders(t *testing.T) {
	c, err := corpus.Default()
	require.NoError(t, err)
	cache, err := New(c.Records())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if cache.Len() != c.Count() || len(cache.All()) != c.Count() {
					t.Error("inconsistent read")
					return
				}
			}
		}()
	}
	wg.Wait()
}

type failingScanner struct {
	err error
}

func (f failingScanner) ScanAll(context.Context) ([]store.Record, error) {
	return nil, f.err
}
