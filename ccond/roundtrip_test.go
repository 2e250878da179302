package ccond

import (
	"bytes"
	"testing"
)

func TestFulfillment_BinaryRoundTrip(t *testing.T) {
	for name, f := range sampleFulfillments(t) {
		t.Run(name, func(t *testing.T) {
			der, err := MarshalFulfillment(f)
			if err != nil {
				t.Fatalf("MarshalFulfillment: %v", err)
			}
			parsed, err := ParseFulfillmentBinary(der)
			if err != nil {
				t.Fatalf("ParseFulfillmentBinary: %v", err)
			}
			again, err := MarshalFulfillment(parsed)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if !bytes.Equal(der, again) {
				t.Fatalf("re-encoding differs:\n%x\n%x", der, again)
			}
			if !mustCondition(t, parsed).Equal(mustCondition(t, f)) {
				t.Fatalf("parsed fulfillment derives a different condition")
			}
		})
	}
}

func TestFulfillment_URIRoundTrip(t *testing.T) {
	for name, f := range sampleFulfillments(t) {
		t.Run(name, func(t *testing.T) {
			uri, err := FulfillmentURI(f)
			if err != nil {
				t.Fatalf("FulfillmentURI: %v", err)
			}
			parsed, err := ParseFulfillmentURI(uri)
			if err != nil {
				t.Fatalf("ParseFulfillmentURI(%s): %v", uri, err)
			}
			again, err := FulfillmentURI(parsed)
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			if again != uri {
				t.Fatalf("re-encoding differs:\n%s\n%s", uri, again)
			}
			if !mustCondition(t, parsed).Equal(mustCondition(t, f)) {
				t.Fatalf("parsed fulfillment derives a different condition")
			}
		})
	}
}

func TestFulfillment_JSONRoundTrip(t *testing.T) {
	for name, f := range sampleFulfillments(t) {
		t.Run(name, func(t *testing.T) {
			js, err := ToJSON(f)
			if err != nil {
				t.Fatalf("ToJSON: %v", err)
			}
			parsed, err := FromJSON(js)
			if err != nil {
				t.Fatalf("FromJSON(%s): %v", js, err)
			}
			if !mustCondition(t, parsed).Equal(mustCondition(t, f)) {
				t.Fatalf("JSON round trip changed the condition")
			}
		})
	}
}

func TestCondition_RoundTrip(t *testing.T) {
	for name, f := range sampleFulfillments(t) {
		t.Run(name, func(t *testing.T) {
			c := mustCondition(t, f)

			fromURI, err := ParseConditionURI(c.URI())
			if err != nil {
				t.Fatalf("ParseConditionURI: %v", err)
			}
			if !fromURI.Equal(c) {
				t.Fatalf("URI round trip differs")
			}

			der, err := c.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			fromDER, err := ParseConditionBinary(der)
			if err != nil {
				t.Fatalf("ParseConditionBinary: %v", err)
			}
			if !fromDER.Equal(c) {
				t.Fatalf("binary round trip differs")
			}

			legacy, err := c.LegacyURI()
			if err != nil {
				t.Fatalf("LegacyURI: %v", err)
			}
			fromLegacy, err := ParseConditionURI(legacy)
			if err != nil {
				t.Fatalf("parse legacy %s: %v", legacy, err)
			}
			if !fromLegacy.Equal(c) {
				t.Fatalf("legacy round trip differs")
			}
		})
	}
}

func TestCondition_ParseCopiesInput(t *testing.T) {
	want := mustCondition(t, NewPreimageSha256([]byte("owned")))
	der, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := ParseConditionBinary(der)
	if err != nil {
		t.Fatalf("ParseConditionBinary: %v", err)
	}
	fp := got.Fingerprint()
	for i := range der {
		der[i] = 0xee
	}
	if !bytes.Equal(got.Fingerprint(), fp) || !got.Equal(want) {
		t.Fatalf("condition changed when the input buffer was reused")
	}

	th := NewThresholdSha256(1)
	th.AddSubfulfillment(NewPreimageSha256(nil))
	th.AddSubcondition(want)
	parent := mustCondition(t, th)
	ful, err := MarshalFulfillment(th)
	if err != nil {
		t.Fatalf("MarshalFulfillment: %v", err)
	}
	back, err := ParseFulfillmentBinary(ful)
	if err != nil {
		t.Fatalf("ParseFulfillmentBinary: %v", err)
	}
	for i := range ful {
		ful[i] = 0xee
	}
	if !mustCondition(t, back).Equal(parent) {
		t.Fatalf("threshold subcondition changed when the input buffer was reused")
	}
}

func TestCondition_Deterministic(t *testing.T) {
	a := sampleFulfillments(t)
	b := sampleFulfillments(t)
	for name := range a {
		ca, cb := mustCondition(t, a[name]), mustCondition(t, b[name])
		if ca.URI() != cb.URI() {
			t.Fatalf("%s: condition URI not deterministic", name)
		}
		da, _ := MarshalFulfillment(a[name])
		db, _ := MarshalFulfillment(b[name])
		if !bytes.Equal(da, db) {
			t.Fatalf("%s: fulfillment DER not deterministic", name)
		}
	}
}

func TestCompoundCost_CoversEncodedSize(t *testing.T) {
	for name, f := range sampleFulfillments(t) {
		if !f.Type().Compound() {
			continue
		}
		c := mustCondition(t, f)
		der, err := MarshalFulfillment(f)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		payload, err := legacyPayload(f)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if c.Cost() < uint64(len(der)) || c.Cost() < uint64(len(payload)) {
			t.Fatalf("%s: cost %d below encoded size (der %d, legacy %d)", name, c.Cost(), len(der), len(payload))
		}
	}
}

func TestCondition_Accessors(t *testing.T) {
	c := mustCondition(t, NewPrefixSha256([]byte("abc"), 100, NewPreimageSha256(nil)))
	if c.Type() != TypePrefixSha256 {
		t.Fatalf("type = %s", c.Type())
	}
	if c.Subtypes() != NewTypeSet(TypePreimageSha256) {
		t.Fatalf("subtypes = %s", c.Subtypes())
	}
	fp := c.Fingerprint()
	fp[0] ^= 0xff
	if bytes.Equal(fp, c.Fingerprint()) {
		t.Fatalf("Fingerprint must return a copy")
	}
	if c.IsZero() || !(Condition{}).IsZero() {
		t.Fatalf("IsZero mismatch")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	id, err := c.CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if id.Prefix().Version != 1 {
		t.Fatalf("expected CIDv1, got %s", id)
	}
	if c.String() != c.URI() {
		t.Fatalf("String should render the URI")
	}
}

func TestNewCondition(t *testing.T) {
	fp := bytes.Repeat([]byte{1}, HashSize)
	if _, err := NewCondition(TypeEd25519Sha256, fp, Ed25519Cost, 0); err != nil {
		t.Fatalf("NewCondition: %v", err)
	}
	_, err := NewCondition(TypeEd25519Sha256, fp[:31], Ed25519Cost, 0)
	requireRule(t, err, KindValidation, "CC-CND-002")

	_, err = NewCondition(TypeEd25519Sha256, fp, MaxCost+1, 0)
	requireRule(t, err, KindValidation, "CC-CND-003")

	_, err = NewCondition(TypeEd25519Sha256, fp, Ed25519Cost, NewTypeSet(TypePreimageSha256))
	requireRule(t, err, KindValidation, "CC-CND-004")

	_, err = NewCondition(TypeID(9), fp, 0, 0)
	requireRule(t, err, KindUnsupportedType, "CC-CND-001")
}
