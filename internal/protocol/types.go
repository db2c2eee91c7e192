package protocol

import "slices"

// Protocol is a single catalog record describing a governance practice.
type Protocol struct {
	ProtocolID        string       `json:"protocol_id" yaml:"protocol_id"`
	Name              string       `json:"name" yaml:"name"`
	OriginCulture     string       `json:"origin_culture" yaml:"origin_culture"`
	Category          string       `json:"category" yaml:"category"`
	BugFixed          string       `json:"bug_fixed" yaml:"bug_fixed"`
	Mechanism         string       `json:"mechanism" yaml:"mechanism"`
	ModernScript      ModernScript `json:"modern_script" yaml:"modern_script"`
	EthicalGuardrails []string     `json:"ethical_guardrails" yaml:"ethical_guardrails"`
}

// ModernScript describes how a protocol is run in a present-day organization.
type ModernScript struct {
	Trigger  string `json:"trigger" yaml:"trigger"`
	Contract string `json:"contract" yaml:"contract"`
	Vesting  string `json:"vesting" yaml:"vesting"`
	Ritual   string `json:"ritual" yaml:"ritual"`
}

// Equal reports whether p and other have identical field values, including
// guardrail order.
func (p Protocol) Equal(other Protocol) bool {
	return p.ProtocolID == other.ProtocolID &&
		p.Name == other.Name &&
		p.OriginCulture == other.OriginCulture &&
		p.Category == other.Category &&
		p.BugFixed == other.BugFixed &&
		p.Mechanism == other.Mechanism &&
		p.ModernScript == other.ModernScript &&
		slices.Equal(p.EthicalGuardrails, other.EthicalGuardrails)
}

// Clone returns a deep copy of p.
func (p Protocol) Clone() Protocol {
	p.EthicalGuardrails = slices.Clone(p.EthicalGuardrails)
	return p
}
