package ccond

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/crypto/cryptobyte"

	"xdao.co/ccond/codec"
)

// childCostOverhead is the cost a compound condition adds per child.
const childCostOverhead = 1024

// PrefixSha256 prepends a fixed prefix to the message and delegates to a
// single child. Messages longer than MaxMessageLength are rejected.
type PrefixSha256 struct {
	prefix           []byte
	maxMessageLength uint32
	sub              child
}

// NewPrefixSha256 returns a prefix fulfillment over sub.
func NewPrefixSha256(prefix []byte, maxMessageLength uint32, sub Fulfillment) *PrefixSha256 {
	return &PrefixSha256{
		prefix:           bytes.Clone(prefix),
		maxMessageLength: maxMessageLength,
		sub:              child{fulfillment: sub},
	}
}

func (p *PrefixSha256) Type() TypeID { return TypePrefixSha256 }

func (p *PrefixSha256) Prefix() []byte { return bytes.Clone(p.prefix) }

func (p *PrefixSha256) SetPrefix(b []byte) { p.prefix = bytes.Clone(b) }

func (p *PrefixSha256) MaxMessageLength() uint32 { return p.maxMessageLength }

func (p *PrefixSha256) SetMaxMessageLength(n uint32) { p.maxMessageLength = n }

// SetSubfulfillment sets the child fulfillment, replacing any subcondition.
func (p *PrefixSha256) SetSubfulfillment(f Fulfillment) { p.sub = child{fulfillment: f} }

// SetSubcondition sets only the child's condition. Such a fulfillment can
// derive its condition but cannot be serialized or validated.
func (p *PrefixSha256) SetSubcondition(c Condition) { p.sub = child{condition: c} }

// Subfulfillment returns the child fulfillment, or nil if only a condition
// is known.
func (p *PrefixSha256) Subfulfillment() Fulfillment { return p.sub.fulfillment }

// Subcondition returns the child's condition, deriving it if necessary.
func (p *PrefixSha256) Subcondition() (Condition, error) { return p.sub.conditionOrDerive() }

func (p *PrefixSha256) Subtypes() (TypeSet, error) {
	s, err := p.sub.typeSet()
	if err != nil {
		return 0, err
	}
	return s.Remove(TypePrefixSha256), nil
}

func (p *PrefixSha256) Cost() (uint64, error) {
	subCost, err := p.sub.cost()
	if err != nil {
		return 0, err
	}
	return uint64(len(p.prefix)) + uint64(p.maxMessageLength) + subCost + childCostOverhead, nil
}

func (p *PrefixSha256) Condition() (Condition, error) { return conditionOf(p) }

func (p *PrefixSha256) Validate(message []byte) error {
	if p.sub.fulfillment == nil {
		return newError(KindValidation, "CC-PFX-101", "prefix fulfillment has no subfulfillment")
	}
	if uint64(len(message)) > uint64(p.maxMessageLength) {
		return newError(KindValidation, "CC-PFX-102",
			fmt.Sprintf("message length %d exceeds maximum %d", len(message), p.maxMessageLength))
	}
	prefixed := make([]byte, 0, len(p.prefix)+len(message))
	prefixed = append(prefixed, p.prefix...)
	prefixed = append(prefixed, message...)
	return p.sub.fulfillment.Validate(prefixed)
}

func (p *PrefixSha256) writeFingerprint(w codec.Writer) error {
	c, err := p.sub.conditionOrDerive()
	if err != nil {
		return err
	}
	cb := cryptobyte.NewBuilder(nil)
	c.addDER(cb)
	condDER, err := cb.Bytes()
	if err != nil {
		return wrapError(KindInternal, "CC-PFX-002", "encode subcondition", err)
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(sequenceTag, func(b *cryptobyte.Builder) {
		addOctets(b, 0, p.prefix)
		b.AddASN1Int64WithTag(int64(p.maxMessageLength), implicitTag(1))
		b.AddASN1(constructedTag(2), func(b *cryptobyte.Builder) { b.AddBytes(condDER) })
	})
	contents, err := b.Bytes()
	if err != nil {
		return wrapError(KindInternal, "CC-PFX-003", "encode fingerprint contents", err)
	}
	w.WriteBytes(contents)
	return nil
}

func (p *PrefixSha256) requireSubfulfillment() error {
	if p.sub.fulfillment == nil {
		return newError(KindMissingData, "CC-PFX-001", "prefix fulfillment requires a subfulfillment")
	}
	return nil
}

func (p *PrefixSha256) writePayload(w codec.Writer) error {
	if err := p.requireSubfulfillment(); err != nil {
		return err
	}
	w.WriteVarBytes(p.prefix)
	w.WriteVarUint(uint64(p.maxMessageLength))
	return writeNested(w, p.sub.fulfillment)
}

func (p *PrefixSha256) readPayload(r *codec.Reader, d *decoder) error {
	prefix, err := r.ReadVarBytes()
	if err != nil {
		return wrapCodec("CC-PFX-010", "read prefix", err)
	}
	maxLen, err := r.ReadVarUint()
	if err != nil {
		return wrapCodec("CC-PFX-011", "read max message length", err)
	}
	if maxLen > math.MaxUint32 {
		return newError(KindParse, "CC-PFX-012", fmt.Sprintf("max message length %d out of range", maxLen))
	}
	sub, err := readNested(r, d)
	if err != nil {
		return err
	}
	p.prefix = prefix
	p.maxMessageLength = uint32(maxLen)
	p.sub = child{fulfillment: sub}
	return nil
}

func (p *PrefixSha256) derBody() ([]byte, error) {
	if err := p.requireSubfulfillment(); err != nil {
		return nil, err
	}
	subDER, err := marshalFulfillment(p.sub.fulfillment)
	if err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	addOctets(b, 0, p.prefix)
	b.AddASN1Int64WithTag(int64(p.maxMessageLength), implicitTag(1))
	b.AddASN1(constructedTag(2), func(b *cryptobyte.Builder) { b.AddBytes(subDER) })
	return b.Bytes()
}

func (p *PrefixSha256) readDER(body *cryptobyte.String, d *decoder) error {
	var prefix []byte
	if !body.ReadASN1Bytes(&prefix, implicitTag(0)) {
		return derError(*body, "CC-PFX-020", "malformed prefix")
	}
	var maxLen int64
	if !body.ReadASN1Int64WithTag(&maxLen, implicitTag(1)) {
		return derError(*body, "CC-PFX-021", "malformed max message length")
	}
	if maxLen < 0 || maxLen > math.MaxUint32 {
		return newError(KindParse, "CC-PFX-012", fmt.Sprintf("max message length %d out of range", maxLen))
	}
	var inner cryptobyte.String
	if !body.ReadASN1(&inner, constructedTag(2)) {
		return derError(*body, "CC-PFX-022", "malformed subfulfillment")
	}
	sub, err := readFulfillmentDER(&inner, d)
	if err != nil {
		return err
	}
	if !inner.Empty() {
		return newError(KindParse, "CC-PFX-023", "trailing data after subfulfillment")
	}
	p.prefix = bytes.Clone(prefix)
	p.maxMessageLength = uint32(maxLen)
	p.sub = child{fulfillment: sub}
	return nil
}
