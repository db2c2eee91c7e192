package render

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/culturekernel/internal/catalog"
	"github.com/roach88/culturekernel/internal/corpus"
	"github.com/roach88/culturekernel/internal/protocol"
)

func fixtureCache(t *testing.T) *catalog.Cache {
	t.Helper()
	cache, err := catalog.New([]protocol.Protocol{
		{
			ProtocolID:    "talking-stick",
			Name:          "Talking Stick",
			OriginCulture: "Haudenosaunee",
			Category:      "Deliberation",
			BugFixed:      "The loudest voice dominates the meeting",
			Mechanism:     "Only the holder of the stick may speak.",
			ModernScript: protocol.ModernScript{
				Trigger:  "A meeting has more than five people",
				Contract: "Speak only while holding the token",
				Vesting:  "Every attendee holds it once",
				Ritual:   "Pass the token clockwise",
			},
			EthicalGuardrails: []string{"Never skip a quiet member", "The token is not a reward"},
		},
		{
			ProtocolID:    "consensus-minus-one-extended",
			Name:          "Consensus Minus One",
			OriginCulture: "Quaker business meetings",
			Category:      "Decision Making",
			BugFixed:      "A single holdout can veto indefinitely and stall the group for months",
			Mechanism:     "A proposal passes unless two or more members object.",
			ModernScript: protocol.ModernScript{
				Trigger:  "A decision has stalled for two cycles",
				Contract: "One objection is recorded, two block",
				Vesting:  "Objections expire after one quarter",
				Ritual:   "Read objections aloud before the vote",
			},
			EthicalGuardrails: []string{"Recorded objections stay visible"},
		},
	})
	require.NoError(t, err)
	return cache
}

func corpusCache(t *testing.T) *catalog.Cache {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	cache, err := catalog.New(c.Records())
	require.NoError(t, err)
	return cache
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_TabularGolden(t *testing.T) {
	out, err := Renderer{}.Render(fixtureCache(t), Tabular)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeText, out.ContentType)

	golden(t).Assert(t, "tabular_summary", out.Body)
}

func TestRender_TabularDetailGolden(t *testing.T) {
	out, err := Renderer{Detail: true}.Render(fixtureCache(t), Tabular)
	require.NoError(t, err)

	golden(t).Assert(t, "tabular_detail", out.Body)
}

func TestRender_StructuredIndentGolden(t *testing.T) {
	out, err := Renderer{Indent: true}.Render(fixtureCache(t), Structured)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, out.ContentType)

	golden(t).Assert(t, "structured_indent", out.Body)
}

func TestRender_StructuredCarriesEveryRecord(t *testing.T) {
	cache := corpusCache(t)

	out, err := Renderer{}.Render(cache, Structured)
	require.NoError(t, err)

	var got []protocol.Protocol
	require.NoError(t, json.Unmarshal(out.Body, &got))
	require.Len(t, got, cache.Len())

	want := cache.All()
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "record %d differs", i)
	}
}

func TestRender_StructuredFieldNames(t *testing.T) {
	out, err := Renderer{}.Render(fixtureCache(t), Structured)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(out.Body, &raw))
	require.Len(t, raw, 2)

	for _, key := range []string{
		"protocol_id", "name", "origin_culture", "category",
		"bug_fixed", "mechanism", "modern_script", "ethical_guardrails",
	} {
		assert.Contains(t, raw[0], key)
	}
	script, ok := raw[0]["modern_script"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, script, 4)
}

func TestRender_TabularOneRowPerRecord(t *testing.T) {
	cache := corpusCache(t)

	out, err := Renderer{}.Render(cache, Tabular)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out.Body), "\n"), "\n")
	// banner, blank, header, rule, rows..., blank, footer
	require.Len(t, lines, cache.Len()+6)
	assert.Equal(t, Banner, lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "ID"))

	for i, id := range cache.IDs() {
		row := lines[4+i]
		assert.True(t, strings.HasPrefix(row, id[:min(len(id), 19)]), "row %d: %q", i, row)
	}
	assert.Equal(t, "21 protocols", lines[len(lines)-1])
}

func TestRender_EmptyCache(t *testing.T) {
	cache, err := catalog.New(nil)
	require.NoError(t, err)

	structured, err := Renderer{}.Render(cache, Structured)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(structured.Body))

	tabular, err := Renderer{}.Render(cache, Tabular)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(tabular.Body), "\n0 protocols\n"))
}

func TestRender_SingularFooter(t *testing.T) {
	cache, err := catalog.New([]protocol.Protocol{{ProtocolID: "solo", EthicalGuardrails: []string{"x"}}})
	require.NoError(t, err)

	out, err := Renderer{}.Render(cache, Tabular)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out.Body), "\n1 protocol\n"))
}

func TestRender_ColorDoesNotChangeText(t *testing.T) {
	cache := fixtureCache(t)

	plain, err := Renderer{}.Render(cache, Tabular)
	require.NoError(t, err)
	colored, err := Renderer{Color: true}.Render(cache, Tabular)
	require.NoError(t, err)

	assert.NotEqual(t, plain.Body, colored.Body)
	assert.Contains(t, string(colored.Body), "\x1b[")
	assert.Equal(t, string(plain.Body), stripANSI(string(colored.Body)))
}

func TestRender_Deterministic(t *testing.T) {
	cache := corpusCache(t)

	for _, mode := range []Mode{Structured, Tabular} {
		first, err := Renderer{}.Render(cache, mode)
		require.NoError(t, err)
		second, err := Renderer{}.Render(cache, mode)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first.Body, second.Body), "mode %s", mode)
	}
}

func TestRender_UnknownMode(t *testing.T) {
	_, err := Renderer{}.Render(fixtureCache(t), Mode(7))
	assert.Error(t, err)
}

func TestFit(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		pad   bool
		want  string
	}{
		{"short padded", "abc", 6, true, "abc   "},
		{"short unpadded", "abc", 6, false, "abc"},
		{"exact", "abcdef", 6, true, "abcdef"},
		{"truncated", "abcdefgh", 6, true, "abcde…"},
		{"newlines flattened", "a\nb  c", 6, true, "a b c "},
		{"wide runes", "日本語テキスト", 6, true, "日本… "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fit(tt.in, tt.width, tt.pad))
		})
	}
}

func TestMemo(t *testing.T) {
	cache := fixtureCache(t)
	memo := NewMemo(Renderer{}, cache)
	assert.Same(t, cache, memo.Cache())

	direct, err := Renderer{}.Render(cache, Tabular)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := memo.Render(Tabular)
			if err != nil || !bytes.Equal(out.Body, direct.Body) {
				t.Error("memoized tabular output differs")
			}
		}()
	}
	wg.Wait()

	_, err = memo.Render(Mode(-1))
	assert.Error(t, err)
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
