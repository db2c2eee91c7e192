package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/culturekernel/internal/protocol"
)

func TestDefault_LoadsCanonicalCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 21, c.Count())
	ids := c.IDs()
	require.Len(t, ids, 21)
	assert.Equal(t, "talking-stick", ids[0])
	assert.Equal(t, "lagom-budget", ids[len(ids)-1])

	seen := make(map[string]bool)
	for _, p := range c.Records() {
		assert.NotEmpty(t, p.ProtocolID)
		assert.False(t, seen[p.ProtocolID], "duplicate id %q", p.ProtocolID)
		seen[p.ProtocolID] = true
		assert.NotEmpty(t, p.EthicalGuardrails, "protocol %q has no guardrails", p.ProtocolID)
	}
}

func TestDefault_ReturnsSameValue(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestDefault_RecordsRoundTripThroughCodec(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, p := range c.Records() {
		data, err := protocol.Encode(p)
		require.NoError(t, err)

		got, err := protocol.Decode(data)
		require.NoError(t, err)
		assert.True(t, p.Equal(got), "protocol %q changed in round trip", p.ProtocolID)
	}
}

func TestRecords_ReturnsCopy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	records := c.Records()
	records[0].Name = "mutated"
	records[0].EthicalGuardrails[0] = "mutated"

	fresh, ok := c.Get(records[0].ProtocolID)
	require.True(t, ok)
	assert.NotEqual(t, "mutated", fresh.Name)
	assert.NotEqual(t, "mutated", fresh.EthicalGuardrails[0])
}

func TestContainsAndGet(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.True(t, c.Contains("potlatch"))
	assert.False(t, c.Contains("not-a-protocol"))

	_, ok := c.Get("not-a-protocol")
	assert.False(t, ok)
}

const validDoc = `
protocols:
  - protocol_id: first
    name: First
    origin_culture: Somewhere
    category: Test
    bug_fixed: Nothing
    mechanism: Something
    modern_script:
      trigger: t
      contract: c
      vesting: v
      ritual: r
    ethical_guardrails:
      - one
      - two
`

func TestParse_Valid(t *testing.T) {
	c, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, 1, c.Count())
	p, ok := c.Get("first")
	require.True(t, ok)
	assert.Equal(t, []string{"one", "two"}, p.EthicalGuardrails)
	assert.Equal(t, "r", p.ModernScript.Ritual)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "protocols: [unclosed"},
		{"empty", "protocols: []"},
		{"bad id", strings.Replace(validDoc, "protocol_id: first", "protocol_id: First Protocol", 1)},
		{"empty name", strings.Replace(validDoc, "name: First", `name: ""`, 1)},
		{"missing script field", strings.Replace(validDoc, "      ritual: r\n", "", 1)},
		{"no guardrails", strings.Replace(validDoc, "    ethical_guardrails:\n      - one\n      - two\n", "    ethical_guardrails: []\n", 1)},
		{"duplicate id", validDoc + validDoc[len("\nprotocols:\n"):]},
		{"not nfc", strings.Replace(validDoc, "origin_culture: Somewhere", "origin_culture: \"Ma\\u0304ori\"", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}
