// Package catalog holds the read-only, ordered in-memory snapshot of the
// protocol catalog that every request is served from.
//
// A Cache is loaded once, after the store has been validated, and never
// changes afterward. It is safe for any number of concurrent readers without
// locking.
package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/culturekernel/internal/protocol"
	"github.com/roach88/culturekernel/internal/store"
)

// Scanner reads every stored record in insertion order.
type Scanner interface {
	ScanAll(ctx context.Context) ([]store.Record, error)
}

// Cache is an immutable ordered snapshot of protocol records.
type Cache struct {
	records []protocol.Protocol
	index   map[string]int
}

// Load reads and decodes every record from the store.
//
// The store must already have passed the startup integrity check, so any
// scan or decode failure here is an internal error, not a health verdict.
func Load(ctx context.Context, st Scanner) (*Cache, error) {
	rows, err := st.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	records := make([]protocol.Protocol, 0, len(rows))
	for _, r := range rows {
		p, err := store.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		records = append(records, p)
	}
	return New(records)
}

// New builds a cache from records in the given order. Ids must be unique.
func New(records []protocol.Protocol) (*Cache, error) {
	c := &Cache{
		records: make([]protocol.Protocol, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for i, p := range records {
		if _, dup := c.index[p.ProtocolID]; dup {
			return nil, fmt.Errorf("catalog: duplicate protocol_id %q", p.ProtocolID)
		}
		c.index[p.ProtocolID] = i
		c.records[i] = p.Clone()
	}
	return c, nil
}

// Len returns the number of records.
func (c *Cache) Len() int {
	return len(c.records)
}

// All returns a deep copy of the records in catalog order.
func (c *Cache) All() []protocol.Protocol {
	out := make([]protocol.Protocol, len(c.records))
	for i, p := range c.records {
		out[i] = p.Clone()
	}
	return out
}

// Each calls fn for every record in catalog order without copying.
// fn must not retain or modify the guardrail slice.
func (c *Cache) Each(fn func(i int, p *protocol.Protocol)) {
	for i := range c.records {
		fn(i, &c.records[i])
	}
}

// IDs returns the record ids in catalog order.
func (c *Cache) IDs() []string {
	ids := make([]string, len(c.records))
	for i, p := range c.records {
		ids[i] = p.ProtocolID
	}
	return ids
}

// Get returns a copy of the record with the given id.
func (c *Cache) Get(id string) (protocol.Protocol, bool) {
	i, ok := c.index[id]
	if !ok {
		return protocol.Protocol{}, false
	}
	return c.records[i].Clone(), true
}
