package ccond

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// MarshalBinary returns the DER encoding of c.
func (c Condition) MarshalBinary() ([]byte, error) {
	if c.IsZero() {
		return nil, newError(KindMissingData, "CC-CND-000", "condition is empty")
	}
	b := cryptobyte.NewBuilder(nil)
	c.addDER(b)
	out, err := b.Bytes()
	if err != nil {
		return nil, wrapError(KindInternal, "CC-DER-001", "encode condition", err)
	}
	return out, nil
}

func (c Condition) addDER(b *cryptobyte.Builder) {
	b.AddASN1(choiceTag(c.typ), func(b *cryptobyte.Builder) {
		addOctets(b, 0, c.fingerprint)
		b.AddASN1Int64WithTag(int64(c.cost), implicitTag(1))
		if c.typ.Compound() {
			b.AddASN1(implicitTag(2), func(b *cryptobyte.Builder) {
				b.AddBytes(c.subtypes.appendBitString(nil))
			})
		}
	})
}

// readConditionDER reads one Condition CHOICE element from s.
func readConditionDER(s *cryptobyte.String, d *decoder) (Condition, error) {
	start := []byte(*s)
	var body cryptobyte.String
	var tag asn1.Tag
	if !s.ReadAnyASN1(&body, &tag) {
		return Condition{}, derError(start, "CC-DER-010", "malformed condition element")
	}
	id, ok := choiceID(tag)
	if !ok {
		return Condition{}, newError(KindParse, "CC-DER-011", fmt.Sprintf("unexpected condition tag %#x", uint8(tag)))
	}
	info, err := d.reg.Lookup(id)
	if err != nil {
		return Condition{}, err
	}

	c := Condition{typ: info.ID}
	var fp []byte
	if !body.ReadASN1Bytes(&fp, implicitTag(0)) {
		return Condition{}, derError(body, "CC-DER-012", "malformed condition fingerprint")
	}
	c.fingerprint = bytes.Clone(fp)
	var cost int64
	if !body.ReadASN1Int64WithTag(&cost, implicitTag(1)) || cost < 0 {
		return Condition{}, derError(body, "CC-DER-013", "malformed condition cost")
	}
	c.cost = uint64(cost)
	if info.Compound {
		var raw []byte
		if !body.ReadASN1Bytes(&raw, implicitTag(2)) {
			return Condition{}, derError(body, "CC-DER-014", "compound condition missing subtypes")
		}
		set, ok := parseBitString(raw)
		if !ok {
			return Condition{}, newError(KindParse, "CC-DER-015", "malformed subtypes bit string")
		}
		c.subtypes = set
	}
	if !body.Empty() {
		return Condition{}, newError(KindParse, "CC-DER-016", "trailing data in condition")
	}
	if err := c.validate(d.reg); err != nil {
		return Condition{}, err
	}
	return c, nil
}

func parseConditionBinary(data []byte, d *decoder) (Condition, error) {
	s := cryptobyte.String(data)
	c, err := readConditionDER(&s, d)
	if err != nil {
		return Condition{}, err
	}
	if !s.Empty() {
		return Condition{}, newError(KindParse, "CC-DER-017", "trailing data after condition")
	}
	return c, nil
}
