package ccond

import (
	"bytes"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/cryptobyte"

	"xdao.co/ccond/codec"
)

// Ed25519Cost is the fixed cost of an Ed25519Sha256 condition.
const Ed25519Cost = 131072

// Ed25519Sha256 is an Ed25519 signature with the signer's public key.
type Ed25519Sha256 struct {
	publicKey []byte
	signature []byte
}

// NewEd25519Sha256 returns a fulfillment from a 32-byte public key and a
// 64-byte signature.
func NewEd25519Sha256(publicKey, signature []byte) (*Ed25519Sha256, error) {
	f := &Ed25519Sha256{}
	if err := f.set(bytes.Clone(publicKey), bytes.Clone(signature), KindValidation); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Ed25519Sha256) Type() TypeID { return TypeEd25519Sha256 }

func (f *Ed25519Sha256) PublicKey() []byte { return bytes.Clone(f.publicKey) }

func (f *Ed25519Sha256) Signature() []byte { return bytes.Clone(f.signature) }

// SetPublicKey sets the key and clears any signature.
func (f *Ed25519Sha256) SetPublicKey(pub []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return newError(KindValidation, "CC-ED-001", fmt.Sprintf("ed25519 public key must be %d bytes", ed25519.PublicKeySize))
	}
	f.publicKey = bytes.Clone(pub)
	f.signature = nil
	return nil
}

// Sign sets the public key from priv and signs message.
func (f *Ed25519Sha256) Sign(message []byte, priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return newError(KindMissingData, "CC-ED-010", "ed25519 private key is required")
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return newError(KindInternal, "CC-ED-011", "unexpected ed25519 public key type")
	}
	f.publicKey = bytes.Clone(pub)
	f.signature = ed25519.Sign(priv, message)
	return nil
}

func (f *Ed25519Sha256) set(pub, sig []byte, kind Kind) error {
	if len(pub) != ed25519.PublicKeySize {
		return newError(kind, "CC-ED-001", fmt.Sprintf("ed25519 public key must be %d bytes", ed25519.PublicKeySize))
	}
	if len(sig) != ed25519.SignatureSize {
		return newError(kind, "CC-ED-002", fmt.Sprintf("ed25519 signature must be %d bytes", ed25519.SignatureSize))
	}
	f.publicKey = pub
	f.signature = sig
	return nil
}

func (f *Ed25519Sha256) Subtypes() (TypeSet, error) { return 0, nil }

func (f *Ed25519Sha256) Cost() (uint64, error) { return Ed25519Cost, nil }

func (f *Ed25519Sha256) Condition() (Condition, error) { return conditionOf(f) }

func (f *Ed25519Sha256) Validate(message []byte) error {
	if len(f.publicKey) != ed25519.PublicKeySize || len(f.signature) != ed25519.SignatureSize {
		return newError(KindValidation, "CC-ED-100", "ed25519 fulfillment is incomplete")
	}
	if !ed25519.Verify(ed25519.PublicKey(f.publicKey), message, f.signature) {
		return newError(KindValidation, "CC-ED-101", "ed25519 signature is invalid")
	}
	return nil
}

func (f *Ed25519Sha256) writeFingerprint(w codec.Writer) error {
	if len(f.publicKey) != ed25519.PublicKeySize {
		return newError(KindMissingData, "CC-ED-020", "ed25519 public key is not set")
	}
	w.WriteBytes(f.publicKey)
	return nil
}

func (f *Ed25519Sha256) requireSigned() error {
	if len(f.publicKey) != ed25519.PublicKeySize {
		return newError(KindMissingData, "CC-ED-020", "ed25519 public key is not set")
	}
	if len(f.signature) != ed25519.SignatureSize {
		return newError(KindMissingData, "CC-ED-021", "ed25519 signature is not set")
	}
	return nil
}

// writePayload writes the key and signature as fixed-width fields.
func (f *Ed25519Sha256) writePayload(w codec.Writer) error {
	if err := f.requireSigned(); err != nil {
		return err
	}
	w.WriteBytes(f.publicKey)
	w.WriteBytes(f.signature)
	return nil
}

func (f *Ed25519Sha256) readPayload(r *codec.Reader, _ *decoder) error {
	pub, err := r.ReadBytes(ed25519.PublicKeySize)
	if err != nil {
		return wrapCodec("CC-ED-030", "read ed25519 public key", err)
	}
	sig, err := r.ReadBytes(ed25519.SignatureSize)
	if err != nil {
		return wrapCodec("CC-ED-031", "read ed25519 signature", err)
	}
	return f.set(pub, sig, KindParse)
}

func (f *Ed25519Sha256) derBody() ([]byte, error) {
	if err := f.requireSigned(); err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	addOctets(b, 0, f.publicKey)
	addOctets(b, 1, f.signature)
	return b.Bytes()
}

func (f *Ed25519Sha256) readDER(body *cryptobyte.String, _ *decoder) error {
	var pub, sig []byte
	if !body.ReadASN1Bytes(&pub, implicitTag(0)) {
		return derError(*body, "CC-ED-032", "malformed ed25519 public key")
	}
	if !body.ReadASN1Bytes(&sig, implicitTag(1)) {
		return derError(*body, "CC-ED-033", "malformed ed25519 signature")
	}
	return f.set(bytes.Clone(pub), bytes.Clone(sig), KindParse)
}
