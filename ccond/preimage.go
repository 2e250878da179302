package ccond

import (
	"bytes"

	"golang.org/x/crypto/cryptobyte"

	"xdao.co/ccond/codec"
)

// PreimageSha256 is fulfilled by revealing a value whose SHA-256 digest is
// the condition fingerprint. It proves any message.
type PreimageSha256 struct {
	preimage []byte
}

func NewPreimageSha256(preimage []byte) *PreimageSha256 {
	return &PreimageSha256{preimage: bytes.Clone(preimage)}
}

func (p *PreimageSha256) Type() TypeID { return TypePreimageSha256 }

// Preimage returns a copy of the preimage.
func (p *PreimageSha256) Preimage() []byte { return bytes.Clone(p.preimage) }

func (p *PreimageSha256) SetPreimage(b []byte) { p.preimage = bytes.Clone(b) }

func (p *PreimageSha256) Subtypes() (TypeSet, error) { return 0, nil }

func (p *PreimageSha256) Cost() (uint64, error) { return uint64(len(p.preimage)), nil }

func (p *PreimageSha256) Condition() (Condition, error) { return conditionOf(p) }

func (p *PreimageSha256) Validate(message []byte) error { return nil }

func (p *PreimageSha256) writeFingerprint(w codec.Writer) error {
	w.WriteBytes(p.preimage)
	return nil
}

func (p *PreimageSha256) writePayload(w codec.Writer) error {
	w.WriteVarBytes(p.preimage)
	return nil
}

func (p *PreimageSha256) readPayload(r *codec.Reader, _ *decoder) error {
	b, err := r.ReadVarBytes()
	if err != nil {
		return wrapCodec("CC-PRE-001", "read preimage", err)
	}
	p.preimage = b
	return nil
}

func (p *PreimageSha256) derBody() ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	addOctets(b, 0, p.preimage)
	return b.Bytes()
}

func (p *PreimageSha256) readDER(body *cryptobyte.String, _ *decoder) error {
	var v []byte
	if !body.ReadASN1Bytes(&v, implicitTag(0)) {
		return derError(*body, "CC-PRE-002", "malformed preimage")
	}
	p.preimage = bytes.Clone(v)
	return nil
}
