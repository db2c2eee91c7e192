package render

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Mode is the negotiated output representation.
type Mode int

const (
	// Structured is a JSON array of full records.
	Structured Mode = iota

	// Tabular is a fixed-width, human-scannable table.
	Tabular
)

func (m Mode) String() string {
	switch m {
	case Structured:
		return "structured"
	case Tabular:
		return "tabular"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a mode or format name to a Mode.
// Accepts "structured"/"json" and "tabular"/"table"/"text".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "json":
		return Structured, nil
	case "tabular", "table", "text":
		return Tabular, nil
	default:
		return 0, fmt.Errorf("unknown render mode %q", s)
	}
}

// Hints is the declared client identity and preference of a request.
type Hints struct {
	UserAgent string
	Accept    string
}

// HintsFromRequest extracts negotiation hints from request headers.
func HintsFromRequest(r *http.Request) Hints {
	return Hints{
		UserAgent: r.Header.Get("User-Agent"),
		Accept:    r.Header.Get("Accept"),
	}
}

// cliAgents are product tokens of plain command-line fetch tools.
var cliAgents = []string{
	"curl",
	"wget",
	"httpie",
	"xh",
	"aria2",
	"fetch",
	"lwp-request",
}

// Negotiate chooses the output mode for a request. It is a pure function of
// the hints, applied in order:
//
//  1. Accept names a JSON media type: Structured
//  2. Accept names text/plain: Tabular
//  3. User-Agent is a command-line fetch tool: Tabular
//  4. Anything else, including browsers and empty hints: Structured
func Negotiate(h Hints) Mode {
	json, text := acceptPrefers(h.Accept)
	switch {
	case json:
		return Structured
	case text:
		return Tabular
	case isCLIAgent(h.UserAgent):
		return Tabular
	default:
		return Structured
	}
}

// acceptPrefers reports whether the Accept header names a JSON type or
// text/plain. A range with q=0 is refused and counts as absent; other quality
// values are ignored. Wildcards name neither.
func acceptPrefers(accept string) (json, text bool) {
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, _ := strings.Cut(part, ";")
		if refused(params) {
			continue
		}
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		switch {
		case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
			json = true
		case mediaType == "text/plain":
			text = true
		}
	}
	return json, text
}

// refused reports whether media range parameters carry q=0.
func refused(params string) bool {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(param, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return err == nil && q == 0
	}
	return false
}

func isCLIAgent(ua string) bool {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return false
	}
	if strings.Contains(ua, "powershell") {
		return true
	}
	product, _, _ := strings.Cut(ua, "/")
	product, _, _ = strings.Cut(product, " ")
	for _, agent := range cliAgents {
		if product == agent {
			return true
		}
	}
	return false
}
