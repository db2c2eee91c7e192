// Package render turns the catalog cache into one of two representations.
//
// Structured output is a JSON array of every record with every field.
// Tabular output is a fixed-width table, one row per record. Both are
// produced from the same cache snapshot, in the same order, and never
// disagree on record count or field content. Terminal colors in tabular
// output are applied after padding and truncation, so they never change
// the text of a cell.
//
// Rendering is deterministic: the same cache, mode and options always
// produce byte-identical output.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/roach88/culturekernel/internal/catalog"
	"github.com/roach88/culturekernel/internal/protocol"
)

// Content types for each mode.
const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Banner heads every tabular rendering.
const Banner = "CULTURE KERNEL :: PROTOCOL CATALOG"

// TruncationMarker replaces the tail of a cell that does not fit its column.
const TruncationMarker = "…"

// Output is a rendered response body and its content type.
type Output struct {
	Body        []byte
	ContentType string
}

// Renderer holds presentation options. The zero value renders compact JSON
// and uncolored summary tables.
type Renderer struct {
	// Color enables ANSI styling in tabular output.
	Color bool

	// Detail adds mechanism, modern script and guardrails under each row.
	Detail bool

	// Indent pretty-prints structured output.
	Indent bool
}

// Render produces the representation of c selected by m.
func (r Renderer) Render(c *catalog.Cache, m Mode) (Output, error) {
	switch m {
	case Structured:
		body, err := r.structured(c)
		if err != nil {
			return Output{}, err
		}
		return Output{Body: body, ContentType: ContentTypeJSON}, nil
	case Tabular:
		return Output{Body: r.tabular(c), ContentType: ContentTypeText}, nil
	default:
		return Output{}, fmt.Errorf("render: unsupported mode %s", m)
	}
}

func (r Renderer) structured(c *catalog.Cache) ([]byte, error) {
	records := c.All()

	var body []byte
	var err error
	if r.Indent {
		body, err = json.MarshalIndent(records, "", "  ")
	} else {
		body, err = json.Marshal(records)
	}
	if err != nil {
		return nil, fmt.Errorf("render structured: %w", err)
	}
	return append(body, '\n'), nil
}

// column is one fixed-width table column.
type column struct {
	title string
	width int
	value func(p *protocol.Protocol) string
}

var columns = []column{
	{"ID", 20, func(p *protocol.Protocol) string { return p.ProtocolID }},
	{"NAME", 24, func(p *protocol.Protocol) string { return p.Name }},
	{"ORIGIN", 20, func(p *protocol.Protocol) string { return p.OriginCulture }},
	{"CATEGORY", 14, func(p *protocol.Protocol) string { return p.Category }},
	{"BUG FIXED", 40, func(p *protocol.Protocol) string { return p.BugFixed }},
}

const columnGap = "  "

// widths is pinned to narrow East Asian ambiguous widths so output does not
// depend on the host locale.
var widths = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// fit truncates s to width display cells. The last column is not padded.
func fit(s string, width int, pad bool) string {
	s = widths.Truncate(flatten(s), width, TruncationMarker)
	if pad {
		return widths.FillRight(s, width)
	}
	return s
}

// flatten keeps multi-line values on a single row.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type palette struct {
	banner, header, id, rule, label *color.Color
}

func (r Renderer) palette() palette {
	p := palette{
		banner: color.New(color.FgYellow, color.Bold),
		header: color.New(color.Bold),
		id:     color.New(color.FgCyan),
		rule:   color.New(color.Faint),
		label:  color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.banner, p.header, p.id, p.rule, p.label} {
		if r.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (r Renderer) tabular(c *catalog.Cache) []byte {
	pal := r.palette()
	var b bytes.Buffer

	b.WriteString(pal.banner.Sprint(Banner))
	b.WriteString("\n\n")

	last := len(columns) - 1
	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, col := range columns {
		header[i] = fit(col.title, col.width, i != last)
		rule[i] = strings.Repeat("-", col.width)
	}
	b.WriteString(pal.header.Sprint(strings.Join(header, columnGap)))
	b.WriteByte('\n')
	b.WriteString(pal.rule.Sprint(strings.Join(rule, columnGap)))
	b.WriteByte('\n')

	c.Each(func(_ int, p *protocol.Protocol) {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = fit(col.value(p), col.width, i != last)
		}
		cells[0] = pal.id.Sprint(cells[0])
		b.WriteString(strings.Join(cells, columnGap))
		b.WriteByte('\n')

		if r.Detail {
			writeDetail(&b, pal, p)
		}
	})

	noun := "protocols"
	if c.Len() == 1 {
		noun = "protocol"
	}
	fmt.Fprintf(&b, "\n%d %s\n", c.Len(), noun)
	return b.Bytes()
}

func writeDetail(b *bytes.Buffer, pal palette, p *protocol.Protocol) {
	line := func(label, value string) {
		fmt.Fprintf(b, "    %s %s\n", pal.label.Sprint(fmt.Sprintf("%-11s", label)), flatten(value))
	}
	line("mechanism", p.Mechanism)
	line("trigger", p.ModernScript.Trigger)
	line("contract", p.ModernScript.Contract)
	line("vesting", p.ModernScript.Vesting)
	line("ritual", p.ModernScript.Ritual)
	fmt.Fprintf(b, "    %s\n", pal.label.Sprint("guardrails"))
	for i, g := range p.EthicalGuardrails {
		fmt.Fprintf(b, "      %d. %s\n", i+1, flatten(g))
	}
	b.WriteByte('\n')
}

// Memo caches the rendering of each mode for one immutable cache.
// Safe for concurrent use.
type Memo struct {
	renderer Renderer
	cache    *catalog.Cache

	once [2]sync.Once
	out  [2]Output
	err  [2]error
}

// NewMemo returns a Memo rendering c with r.
func NewMemo(r Renderer, c *catalog.Cache) *Memo {
	return &Memo{renderer: r, cache: c}
}

// Render returns the memoized output for m, rendering it on first use.
// Callers must not modify the returned body.
func (m *Memo) Render(mode Mode) (Output, error) {
	if mode != Structured && mode != Tabular {
		return Output{}, fmt.Errorf("render: unsupported mode %s", mode)
	}
	i := int(mode)
	m.once[i].Do(func() {
		m.out[i], m.err[i] = m.renderer.Render(m.cache, mode)
	})
	return m.out[i], m.err[i]
}

// Len returns the number of records in the rendered catalog.
func (m *Memo) Len() int {
	return m.cache.Len()
}

// Cache returns the catalog the memo renders.
func (m *Memo) Cache() *catalog.Cache {
	return m.cache
}
