package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"
)

// DecodeError reports a stored record that could not be turned back into a
// Protocol.
type DecodeError struct {
	// ID is the store key the bytes were read under, if known.
	ID string

	// Field names the offending field for shape errors. Empty for syntax errors.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying parser error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	prefix := "decode protocol"
	if e.ID != "" {
		prefix = fmt.Sprintf("decode protocol %q", e.ID)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %s: %s", prefix, e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Encode returns the canonical JSON bytes for p.
func Encode(p Protocol) ([]byte, error) {
	if p.ProtocolID == "" {
		return nil, fmt.Errorf("encode protocol: empty protocol_id")
	}

	guardrails := make([]any, len(p.EthicalGuardrails))
	for i, g := range p.EthicalGuardrails {
		guardrails[i] = norm.NFC.String(g)
	}

	// Map keys are emitted sorted, which fixes the byte layout.
	m := map[string]any{
		"protocol_id":    norm.NFC.String(p.ProtocolID),
		"name":           norm.NFC.String(p.Name),
		"origin_culture": norm.NFC.String(p.OriginCulture),
		"category":       norm.NFC.String(p.Category),
		"bug_fixed":      norm.NFC.String(p.BugFixed),
		"mechanism":      norm.NFC.String(p.Mechanism),
		"modern_script": map[string]any{
			"trigger":  norm.NFC.String(p.ModernScript.Trigger),
			"contract": norm.NFC.String(p.ModernScript.Contract),
			"vesting":  norm.NFC.String(p.ModernScript.Vesting),
			"ritual":   norm.NFC.String(p.ModernScript.Ritual),
		},
		"ethical_guardrails": guardrails,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode protocol %q: %w", p.ProtocolID, err)
	}
	// Encoder adds a trailing newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// wireProtocol mirrors Protocol with pointer fields so absent keys can be
// told apart from empty strings.
type wireProtocol struct {
	ProtocolID        *string     `json:"protocol_id"`
	Name              *string     `json:"name"`
	OriginCulture     *string     `json:"origin_culture"`
	Category          *string     `json:"category"`
	BugFixed          *string     `json:"bug_fixed"`
	Mechanism         *string     `json:"mechanism"`
	ModernScript      *wireScript `json:"modern_script"`
	EthicalGuardrails *[]string   `json:"ethical_guardrails"`
}

type wireScript struct {
	Trigger  *string `json:"trigger"`
	Contract *string `json:"contract"`
	Vesting  *string `json:"vesting"`
	Ritual   *string `json:"ritual"`
}

// Decode parses stored bytes into a Protocol.
// All failures are returned as *DecodeError.
func Decode(data []byte) (Protocol, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Protocol{}, &DecodeError{Message: "empty record"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireProtocol
	if err := dec.Decode(&w); err != nil {
		return Protocol{}, &DecodeError{Message: "malformed record", Err: err}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return Protocol{}, &DecodeError{Message: "trailing data after record", Err: err}
	}

	return w.protocol()
}

func (w *wireProtocol) protocol() (Protocol, error) {
	var p Protocol
	fields := []struct {
		name string
		src  *string
		dst  *string
	}{
		{"protocol_id", w.ProtocolID, &p.ProtocolID},
		{"name", w.Name, &p.Name},
		{"origin_culture", w.OriginCulture, &p.OriginCulture},
		{"category", w.Category, &p.Category},
		{"bug_fixed", w.BugFixed, &p.BugFixed},
		{"mechanism", w.Mechanism, &p.Mechanism},
	}
	for _, f := range fields {
		if f.src == nil {
			return Protocol{}, &DecodeError{Field: f.name, Message: "missing"}
		}
		*f.dst = *f.src
	}
	if p.ProtocolID == "" {
		return Protocol{}, &DecodeError{Field: "protocol_id", Message: "empty"}
	}

	if w.ModernScript == nil {
		return Protocol{}, &DecodeError{ID: p.ProtocolID, Field: "modern_script", Message: "missing"}
	}
	script := []struct {
		name string
		src  *string
		dst  *string
	}{
		{"modern_script.trigger", w.ModernScript.Trigger, &p.ModernScript.Trigger},
		{"modern_script.contract", w.ModernScript.Contract, &p.ModernScript.Contract},
		{"modern_script.vesting", w.ModernScript.Vesting, &p.ModernScript.Vesting},
		{"modern_script.ritual", w.ModernScript.Ritual, &p.ModernScript.Ritual},
	}
	for _, f := range script {
		if f.src == nil {
			return Protocol{}, &DecodeError{ID: p.ProtocolID, Field: f.name, Message: "missing"}
		}
		*f.dst = *f.src
	}

	if w.EthicalGuardrails == nil {
		return Protocol{}, &DecodeError{ID: p.ProtocolID, Field: "ethical_guardrails", Message: "missing"}
	}
	p.EthicalGuardrails = *w.EthicalGuardrails
	if p.EthicalGuardrails == nil {
		p.EthicalGuardrails = []string{}
	}

	return p, nil
}
