package ccond

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func mustCondition(t *testing.T, f Fulfillment) Condition {
	t.Helper()
	c, err := f.Condition()
	if err != nil {
		t.Fatalf("Condition(%s): %v", f.Type(), err)
	}
	return c
}

func zeroSeedKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
}

func signedEd25519(t *testing.T, message []byte) *Ed25519Sha256 {
	t.Helper()
	f := &Ed25519Sha256{}
	if err := f.Sign(message, zeroSeedKey()); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return f
}

// requireRule asserts err is a structured *Error with the given kind and rule.
func requireRule(t *testing.T, err error, kind Kind, ruleID string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %s, got nil", kind, ruleID)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected structured *ccond.Error, got %T: %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected Kind%s, got %s (%v)", kind, e.Kind, err)
	}
	if e.RuleID != ruleID {
		t.Fatalf("expected RuleID %s, got %s (%v)", ruleID, e.RuleID, err)
	}
}

// sampleFulfillments covers every variant, including nested compounds.
func sampleFulfillments(t *testing.T) map[string]Fulfillment {
	t.Helper()
	ed := signedEd25519(t, []byte("abc-hello"))

	threshold := NewThresholdSha256(2)
	threshold.AddSubfulfillment(NewPreimageSha256([]byte("one")))
	threshold.AddSubfulfillment(NewPrefixSha256([]byte("abc-"), 64, ed))
	threshold.AddSubcondition(mustCondition(t, NewPreimageSha256([]byte("absent"))))

	nested := NewThresholdSha256(1)
	nested.AddSubfulfillment(threshold)
	nested.AddSubfulfillment(NewPreimageSha256(nil))

	return map[string]Fulfillment{
		"preimage-empty": NewPreimageSha256(nil),
		"preimage":       NewPreimageSha256([]byte("hello")),
		"prefix":         NewPrefixSha256([]byte("abc"), 100, NewPreimageSha256(nil)),
		"ed25519":        ed,
		"threshold":      threshold,
		"nested":         nested,
	}
}
