package ccond

import (
	"fmt"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"xdao.co/ccond/codec"
)

// Fulfillment is a proof that satisfies a Condition. The five variants are
// PreimageSha256, PrefixSha256, ThresholdSha256, RsaSha256 and
// Ed25519Sha256; the set is closed.
type Fulfillment interface {
	Type() TypeID

	// Subtypes returns the types used by children, excluding Type itself.
	// Simple types return the empty set.
	Subtypes() (TypeSet, error)

	// Cost returns an upper bound on the size of any fulfillment of the
	// derived condition.
	Cost() (uint64, error)

	// Condition derives the condition this fulfillment satisfies.
	Condition() (Condition, error)

	// Validate returns nil when the fulfillment proves message. A failed
	// check is a KindValidation error.
	Validate(message []byte) error

	// writeFingerprint writes the bytes hashed into the fingerprint.
	writeFingerprint(w codec.Writer) error
	// writePayload and readPayload handle the legacy varint payload.
	writePayload(w codec.Writer) error
	readPayload(r *codec.Reader, d *decoder) error
	// derBody and readDER handle the contents of the DER CHOICE element.
	derBody() ([]byte, error)
	readDER(body *cryptobyte.String, d *decoder) error
}

// conditionOf derives the condition for f by hashing its fingerprint
// contents.
func conditionOf(f Fulfillment) (Condition, error) {
	h := codec.NewHasher(sha256.New)
	if err := f.writeFingerprint(h); err != nil {
		return Condition{}, err
	}
	fp, err := h.Sum()
	if err != nil {
		return Condition{}, wrapCodec("CC-FUL-001", "hash fingerprint contents", err)
	}
	cost, err := f.Cost()
	if err != nil {
		return Condition{}, err
	}
	subtypes, err := f.Subtypes()
	if err != nil {
		return Condition{}, err
	}
	if cost > MaxCost {
		return Condition{}, newError(KindValidation, "CC-CND-003", fmt.Sprintf("cost %d exceeds maximum %d", cost, MaxCost))
	}
	return Condition{typ: f.Type(), subtypes: subtypes, fingerprint: fp, cost: cost}, nil
}

// marshalFulfillment returns the DER CHOICE encoding of f.
func marshalFulfillment(f Fulfillment) ([]byte, error) {
	body, err := f.derBody()
	if err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(choiceTag(f.Type()), func(b *cryptobyte.Builder) { b.AddBytes(body) })
	out, err := b.Bytes()
	if err != nil {
		return nil, wrapError(KindInternal, "CC-DER-002", "encode fulfillment", err)
	}
	return out, nil
}

// readFulfillmentDER reads one Fulfillment CHOICE element from s.
func readFulfillmentDER(s *cryptobyte.String, d *decoder) (Fulfillment, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	start := []byte(*s)
	var body cryptobyte.String
	var tag asn1.Tag
	if !s.ReadAnyASN1(&body, &tag) {
		return nil, derError(start, "CC-DER-020", "malformed fulfillment element")
	}
	id, ok := choiceID(tag)
	if !ok {
		return nil, newError(KindParse, "CC-DER-021", fmt.Sprintf("unexpected fulfillment tag %#x", uint8(tag)))
	}
	f, err := d.reg.newFulfillment(id)
	if err != nil {
		return nil, err
	}
	if err := f.readDER(&body, d); err != nil {
		return nil, err
	}
	if !body.Empty() {
		return nil, newError(KindParse, "CC-DER-022", fmt.Sprintf("trailing data in %s fulfillment", f.Type()))
	}
	return f, nil
}

func parseFulfillmentBinary(data []byte, d *decoder) (Fulfillment, error) {
	s := cryptobyte.String(data)
	f, err := readFulfillmentDER(&s, d)
	if err != nil {
		return nil, err
	}
	if !s.Empty() {
		return nil, newError(KindParse, "CC-DER-023", "trailing data after fulfillment")
	}
	if d.strict() {
		again, err := marshalFulfillment(f)
		if err != nil {
			return nil, err
		}
		if string(again) != string(data) {
			return nil, newError(KindParse, "CC-DER-024", "strict mode: fulfillment encoding is not canonical")
		}
	}
	return f, nil
}

// legacyPayload returns f's legacy varint payload.
func legacyPayload(f Fulfillment) ([]byte, error) {
	buf := codec.NewBuffer()
	if err := f.writePayload(buf); err != nil {
		return nil, err
	}
	out, err := buf.Bytes()
	if err != nil {
		return nil, wrapCodec("CC-LEG-002", fmt.Sprintf("encode %s payload", f.Type()), err)
	}
	return out, nil
}

// writeNested writes a child fulfillment as varuint(type bit) followed by
// its payload as varbytes.
func writeNested(w codec.Writer, f Fulfillment) error {
	payload, err := legacyPayload(f)
	if err != nil {
		return err
	}
	w.WriteVarUint(uint64(f.Type().Bit()))
	w.WriteVarBytes(payload)
	return nil
}

func readNested(r *codec.Reader, d *decoder) (Fulfillment, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	bit, err := r.ReadVarUint()
	if err != nil {
		return nil, wrapCodec("CC-LEG-020", "read fulfillment type", err)
	}
	info, err := d.reg.LookupBitmask(bit)
	if err != nil {
		return nil, err
	}
	if uint64(info.ID.Bit()) != bit {
		return nil, newError(KindParse, "CC-LEG-021", fmt.Sprintf("fulfillment bitmask %#x must name a single type", bit))
	}
	payload, err := r.ReadVarBytes()
	if err != nil {
		return nil, wrapCodec("CC-LEG-022", "read fulfillment payload", err)
	}
	return readPayloadAs(info, payload, d)
}

func readPayloadAs(info TypeInfo, payload []byte, d *decoder) (Fulfillment, error) {
	f := info.newFulfillment()
	pr := codec.NewReader(payload)
	if err := f.readPayload(pr, d); err != nil {
		return nil, err
	}
	if !pr.Empty() {
		return nil, newError(KindParse, "CC-LEG-023", fmt.Sprintf("trailing data in %s payload", info.Name))
	}
	return f, nil
}

// nestedBytes returns the writeNested encoding of f.
func nestedBytes(f Fulfillment) ([]byte, error) {
	buf := codec.NewBuffer()
	if err := writeNested(buf, f); err != nil {
		return nil, err
	}
	out, err := buf.Bytes()
	if err != nil {
		return nil, wrapCodec("CC-LEG-004", fmt.Sprintf("encode nested %s", f.Type()), err)
	}
	return out, nil
}

// nestedSize predicts the length writeNested would produce for f.
func nestedSize(f Fulfillment) (int, error) {
	p := codec.NewPredictor()
	if err := f.writePayload(p); err != nil {
		return 0, err
	}
	if err := p.Err(); err != nil {
		return 0, wrapCodec("CC-LEG-003", "predict payload size", err)
	}
	n := p.Size()
	return codec.VarUintSize(uint64(f.Type().Bit())) + codec.VarUintSize(uint64(n)) + n, nil
}

// child is one sub-element of a compound fulfillment: either a fulfillment
// in hand or only its condition.
type child struct {
	fulfillment Fulfillment
	condition   Condition
}

func (c child) hasFulfillment() bool { return c.fulfillment != nil }

func (c child) conditionOrDerive() (Condition, error) {
	if c.fulfillment != nil {
		return c.fulfillment.Condition()
	}
	if c.condition.IsZero() {
		return Condition{}, newError(KindMissingData, "CC-FUL-002", "child has neither fulfillment nor condition")
	}
	return c.condition, nil
}

// typeSet returns the child's type together with its subtypes.
func (c child) typeSet() (TypeSet, error) {
	if c.fulfillment != nil {
		subs, err := c.fulfillment.Subtypes()
		if err != nil {
			return 0, err
		}
		return subs.Add(c.fulfillment.Type()), nil
	}
	if c.condition.IsZero() {
		return 0, newError(KindMissingData, "CC-FUL-002", "child has neither fulfillment nor condition")
	}
	return c.condition.subtypes.Add(c.condition.typ), nil
}

func (c child) cost() (uint64, error) {
	if c.fulfillment != nil {
		return c.fulfillment.Cost()
	}
	if c.condition.IsZero() {
		return 0, newError(KindMissingData, "CC-FUL-002", "child has neither fulfillment nor condition")
	}
	return c.condition.cost, nil
}
