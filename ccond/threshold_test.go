package ccond

import (
	"bytes"
	"testing"
	"time"
)

func TestThreshold_OrderIndependentCondition(t *testing.T) {
	ed := signedEd25519(t, []byte("m"))
	absent := mustCondition(t, NewPreimageSha256([]byte("c")))

	a := NewThresholdSha256(2)
	a.AddSubfulfillment(NewPreimageSha256([]byte("a")))
	a.AddSubfulfillment(NewPreimageSha256([]byte("b")))
	a.AddSubfulfillment(ed)
	a.AddSubcondition(absent)

	b := NewThresholdSha256(2)
	b.AddSubcondition(absent)
	b.AddSubfulfillment(ed)
	b.AddSubfulfillment(NewPreimageSha256([]byte("b")))
	b.AddSubfulfillment(NewPreimageSha256([]byte("a")))

	if !mustCondition(t, a).Equal(mustCondition(t, b)) {
		t.Fatalf("condition depends on child order")
	}
	da, err := MarshalFulfillment(a)
	if err != nil {
		t.Fatalf("MarshalFulfillment: %v", err)
	}
	db, err := MarshalFulfillment(b)
	if err != nil {
		t.Fatalf("MarshalFulfillment: %v", err)
	}
	if !bytes.Equal(da, db) {
		t.Fatalf("DER depends on child order")
	}
}

func TestThreshold_CostUsesMostExpensiveChildren(t *testing.T) {
	f := NewThresholdSha256(1)
	f.AddSubfulfillment(NewPreimageSha256(make([]byte, 10)))
	f.AddSubfulfillment(NewPreimageSha256(make([]byte, 500)))
	f.AddSubfulfillment(NewPreimageSha256(nil))

	cost, err := f.Cost()
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if want := uint64(500 + 3*childCostOverhead); cost != want {
		t.Fatalf("cost = %d, want %d", cost, want)
	}
}

func TestThreshold_SubtypesExcludeOwnType(t *testing.T) {
	inner := NewThresholdSha256(1)
	inner.AddSubfulfillment(signedEd25519(t, nil))

	outer := NewThresholdSha256(1)
	outer.AddSubfulfillment(inner)
	outer.AddSubfulfillment(NewPrefixSha256(nil, 0, NewPreimageSha256(nil)))

	got, err := outer.Subtypes()
	if err != nil {
		t.Fatalf("Subtypes: %v", err)
	}
	want := NewTypeSet(TypeEd25519Sha256, TypePrefixSha256, TypePreimageSha256)
	if got != want {
		t.Fatalf("subtypes = %s, want %s", got, want)
	}
}

func TestThreshold_RevealsSmallestFulfillments(t *testing.T) {
	f := NewThresholdSha256(1)
	f.AddSubfulfillment(NewPreimageSha256(bytes.Repeat([]byte("x"), 100)))
	f.AddSubfulfillment(NewPreimageSha256([]byte("s")))

	for _, enc := range []string{"uri", "der"} {
		var parsed Fulfillment
		var err error
		if enc == "uri" {
			var uri string
			if uri, err = FulfillmentURI(f); err == nil {
				parsed, err = ParseFulfillmentURI(uri)
			}
		} else {
			var der []byte
			if der, err = MarshalFulfillment(f); err == nil {
				parsed, err = ParseFulfillmentBinary(der)
			}
		}
		if err != nil {
			t.Fatalf("%s: %v", enc, err)
		}
		th := parsed.(*ThresholdSha256)
		subs := th.Subfulfillments()
		if len(subs) != 1 {
			t.Fatalf("%s: revealed %d subfulfillments, want 1", enc, len(subs))
		}
		if got := subs[0].(*PreimageSha256).Preimage(); string(got) != "s" {
			t.Fatalf("%s: revealed %q, want the short preimage", enc, got)
		}
		if !mustCondition(t, parsed).Equal(mustCondition(t, f)) {
			t.Fatalf("%s: condition changed", enc)
		}
	}
}

func TestThreshold_LegacyKeepsChildOrder(t *testing.T) {
	f := NewThresholdSha256(1)
	f.AddSubcondition(mustCondition(t, NewPreimageSha256([]byte("first"))))
	f.AddSubfulfillment(NewPreimageSha256([]byte("second")))

	uri, err := FulfillmentURI(f)
	if err != nil {
		t.Fatalf("FulfillmentURI: %v", err)
	}
	parsed, err := ParseFulfillmentURI(uri)
	if err != nil {
		t.Fatalf("ParseFulfillmentURI: %v", err)
	}
	conds, err := parsed.(*ThresholdSha256).Subconditions()
	if err != nil {
		t.Fatalf("Subconditions: %v", err)
	}
	if len(conds) != 2 {
		t.Fatalf("got %d subconditions", len(conds))
	}
	if !conds[0].Equal(mustCondition(t, NewPreimageSha256([]byte("first")))) {
		t.Fatalf("legacy encoding reordered children")
	}
}

func TestThreshold_Validate(t *testing.T) {
	msg := []byte("payload")
	good := signedEd25519(t, msg)
	bad := signedEd25519(t, []byte("other"))

	twoOfThree := func(children ...Fulfillment) *ThresholdSha256 {
		f := NewThresholdSha256(2)
		for _, c := range children {
			f.AddSubfulfillment(c)
		}
		for f.Len() < 3 {
			f.AddSubcondition(mustCondition(t, NewPreimageSha256([]byte{byte(f.Len())})))
		}
		return f
	}

	if err := twoOfThree(good, NewPreimageSha256(nil)).Validate(msg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	requireRule(t, twoOfThree(good).Validate(msg), KindValidation, "CC-THR-101")
	requireRule(t, twoOfThree(good, bad).Validate(msg), KindValidation, "CC-THR-102")

	empty := NewThresholdSha256(0)
	requireRule(t, empty.Validate(msg), KindValidation, "CC-THR-100")
}

func TestThreshold_MissingFulfillmentsCannotSerialize(t *testing.T) {
	f := NewThresholdSha256(1)
	f.AddSubcondition(emptyCondition(t))

	if _, err := f.Condition(); err != nil {
		t.Fatalf("condition-only threshold should still have a condition: %v", err)
	}
	_, err := FulfillmentURI(f)
	requireRule(t, err, KindMissingData, "CC-THR-004")
	_, err = MarshalFulfillment(f)
	requireRule(t, err, KindMissingData, "CC-THR-004")
}

func TestThreshold_InvalidThreshold(t *testing.T) {
	zero := NewThresholdSha256(0)
	zero.AddSubfulfillment(NewPreimageSha256(nil))
	_, err := zero.Condition()
	requireRule(t, err, KindMissingData, "CC-THR-001")

	tooHigh := NewThresholdSha256(3)
	tooHigh.AddSubfulfillment(NewPreimageSha256(nil))
	_, err = tooHigh.Condition()
	requireRule(t, err, KindValidation, "CC-THR-002")
}

func TestThreshold_AddSubconditionURI(t *testing.T) {
	f := NewThresholdSha256(1)
	if err := f.AddSubconditionURI(emptyPreimageCondition); err != nil {
		t.Fatalf("AddSubconditionURI: %v", err)
	}
	if err := f.AddSubconditionURI("not-a-uri"); err == nil {
		t.Fatalf("expected error for bad URI")
	}
	if f.Len() != 1 {
		t.Fatalf("Len = %d, want 1", f.Len())
	}
}

func TestThreshold_DeepNestingEncodesLinearly(t *testing.T) {
	const depth = 40
	var f Fulfillment = NewPreimageSha256(nil)
	for i := 0; i < depth; i++ {
		th := NewThresholdSha256(1)
		th.AddSubfulfillment(f)
		f = th
	}
	want := mustCondition(t, f)

	start := time.Now()
	der, err := MarshalFulfillment(f)
	if err != nil {
		t.Fatalf("MarshalFulfillment: %v", err)
	}
	fromDER, err := strict.ParseFulfillmentBinary(der)
	if err != nil {
		t.Fatalf("strict ParseFulfillmentBinary: %v", err)
	}
	uri, err := FulfillmentURI(f)
	if err != nil {
		t.Fatalf("FulfillmentURI: %v", err)
	}
	fromURI, err := strict.ParseFulfillmentURI(uri)
	if err != nil {
		t.Fatalf("strict ParseFulfillmentURI: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("%d nested thresholds took %s", depth, elapsed)
	}
	for name, got := range map[string]Fulfillment{"der": fromDER, "uri": fromURI} {
		if !mustCondition(t, got).Equal(want) {
			t.Fatalf("%s: condition changed after round trip", name)
		}
	}
}

func emptyCondition(t *testing.T) Condition {
	t.Helper()
	return mustCondition(t, NewPreimageSha256(nil))
}
