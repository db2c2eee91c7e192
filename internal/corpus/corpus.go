// Package corpus holds the canonical protocol catalog bundled with the binary.
//
// The corpus is the single source of truth for seeding the store. It is
// parsed from the embedded protocols.yaml, checked against the embedded CUE
// schema, and never mutated after load. File order is the seeding and
// presentation order.
package corpus

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/culturekernel/internal/protocol"
)

//go:embed protocols.yaml
var protocolsYAML []byte

//go:embed schema.cue
var schemaCUE string

// Corpus is an immutable, ordered set of canonical protocol records.
type Corpus struct {
	records []protocol.Protocol
	index   map[string]int
}

type document struct {
	Protocols []protocol.Protocol `yaml:"protocols"`
}

var loadDefault = sync.OnceValues(func() (*Corpus, error) {
	return Parse(protocolsYAML)
})

// Default returns the corpus bundled with the binary.
// It is parsed once; later calls return the same value.
func Default() (*Corpus, error) {
	return loadDefault()
}

// Parse decodes a YAML corpus document and validates it.
func Parse(data []byte) (*Corpus, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return New(doc.Protocols)
}

// New builds a corpus from records in the given order.
//
// Every record must satisfy the #Protocol schema, ids must be unique, and
// all text must already be NFC normalized so that stored bytes decode back
// to exactly the same record.
func New(records []protocol.Protocol) (*Corpus, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("corpus: no protocols")
	}

	def, err := protocolSchema()
	if err != nil {
		return nil, err
	}

	c := &Corpus{
		records: make([]protocol.Protocol, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for i, p := range records {
		if err := def.Unify(def.Context().Encode(p)).Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("corpus: protocol[%d] %q: %w", i, p.ProtocolID, err)
		}
		if _, dup := c.index[p.ProtocolID]; dup {
			return nil, fmt.Errorf("corpus: duplicate protocol_id %q", p.ProtocolID)
		}
		if field, ok := firstNonNFC(p); !ok {
			return nil, fmt.Errorf("corpus: protocol %q: field %s is not NFC normalized", p.ProtocolID, field)
		}
		c.index[p.ProtocolID] = i
		c.records = append(c.records, p.Clone())
	}
	return c, nil
}

func protocolSchema() (cue.Value, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("corpus schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Protocol"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("corpus schema: #Protocol: %w", err)
	}
	return def, nil
}

func firstNonNFC(p protocol.Protocol) (string, bool) {
	fields := []struct {
		name, value string
	}{
		{"protocol_id", p.ProtocolID},
		{"name", p.Name},
		{"origin_culture", p.OriginCulture},
		{"category", p.Category},
		{"bug_fixed", p.BugFixed},
		{"mechanism", p.Mechanism},
		{"modern_script.trigger", p.ModernScript.Trigger},
		{"modern_script.contract", p.ModernScript.Contract},
		{"modern_script.vesting", p.ModernScript.Vesting},
		{"modern_script.ritual", p.ModernScript.Ritual},
	}
	for _, f := range fields {
		if !norm.NFC.IsNormalString(f.value) {
			return f.name, false
		}
	}
	for i, g := range p.EthicalGuardrails {
		if !norm.NFC.IsNormalString(g) {
			return fmt.Sprintf("ethical_guardrails[%d]", i), false
		}
	}
	return "", true
}

// Records returns a deep copy of the canonical records in seeding order.
func (c *Corpus) Records() []protocol.Protocol {
	out := make([]protocol.Protocol, len(c.records))
	for i, p := range c.records {
		out[i] = p.Clone()
	}
	return out
}

// Count returns the canonical record count.
func (c *Corpus) Count() int {
	return len(c.records)
}

// IDs returns the canonical ids in seeding order.
func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.records))
	for i, p := range c.records {
		ids[i] = p.ProtocolID
	}
	return ids
}

// Contains reports whether id is a canonical protocol id.
func (c *Corpus) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Get returns the canonical record for id.
func (c *Corpus) Get(id string) (protocol.Protocol, bool) {
	i, ok := c.index[id]
	if !ok {
		return protocol.Protocol{}, false
	}
	return c.records[i].Clone(), true
}
