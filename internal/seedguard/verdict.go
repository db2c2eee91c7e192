package seedguard

import (
	"fmt"
	"strings"
)

// Reason names why a store was judged unhealthy.
type Reason string

const (
	ReasonHealthy       Reason = "healthy"
	ReasonUnreadable    Reason = "unreadable"
	ReasonEmpty         Reason = "empty"
	ReasonDecodeFailure Reason = "decode_failure"
	ReasonCountMismatch Reason = "count_mismatch"
	ReasonMissingIDs    Reason = "missing_ids"
	ReasonUnknownIDs    Reason = "unknown_ids"
)

// Verdict is the result of inspecting a store against the corpus.
type Verdict struct {
	Healthy bool
	Reason  Reason

	// Total is the number of stored rows, decodable or not.
	Total int

	// Expected is the corpus's canonical count.
	Expected int

	// DecodeFailures counts rows whose bytes did not decode.
	DecodeFailures int

	// Missing lists canonical ids absent from the store, in corpus order.
	Missing []string

	// Unknown lists decoded ids the corpus does not know, in store order.
	Unknown []string

	// Err carries the storage error behind an unreadable verdict.
	Err error
}

func (v Verdict) String() string {
	if v.Healthy {
		return fmt.Sprintf("healthy: %d/%d protocols", v.Total, v.Expected)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "unhealthy (%s): %d stored, %d expected", v.Reason, v.Total, v.Expected)
	if v.DecodeFailures > 0 {
		fmt.Fprintf(&b, ", %d undecodable", v.DecodeFailures)
	}
	if len(v.Missing) > 0 {
		fmt.Fprintf(&b, ", missing %s", strings.Join(v.Missing, ","))
	}
	if len(v.Unknown) > 0 {
		fmt.Fprintf(&b, ", unknown %s", strings.Join(v.Unknown, ","))
	}
	if v.Err != nil {
		fmt.Fprintf(&b, ": %v", v.Err)
	}
	return b.String()
}
