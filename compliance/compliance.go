package compliance

import "fmt"

// ComplianceMode selects how aggressively parsing rejects ambiguity.
//
// Strict mode accepts only canonical encodings: the RFC 6920 condition URI
// spelling, no legacy cc: condition URIs, no unknown URI parameters, and
// fulfillments that re-encode to the exact input bytes.
// Permissive mode accepts those alternative spellings.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("ComplianceMode(%d)", int(m))
}

// ParseMode parses "permissive" or "strict". The empty string is Permissive.
func ParseMode(s string) (ComplianceMode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	}
	return Permissive, fmt.Errorf("compliance: unknown mode %q", s)
}
