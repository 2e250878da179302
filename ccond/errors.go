package ccond

import (
	"errors"

	"xdao.co/ccond/codec"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindPrefix          Kind = "Prefix"
	KindParse           Kind = "Parse"
	KindUnderflow       Kind = "Underflow"
	KindUnsupportedType Kind = "UnsupportedType"
	KindMissingData     Kind = "MissingData"
	KindValidation      Kind = "Validation"
	KindInternal        Kind = "Internal"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g., CC-URI-001, CC-DER-010, CC-THR-101)
// that names the violated rule.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// wrapCodec classifies a low-level codec failure. Structured errors from
// nested decoding pass through unchanged.
func wrapCodec(ruleID, msg string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if codec.IsUnderflow(err) {
		return wrapError(KindUnderflow, ruleID, msg, err)
	}
	return wrapError(KindParse, ruleID, msg, err)
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
