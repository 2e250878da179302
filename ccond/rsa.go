package ccond

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/cryptobyte"

	"xdao.co/ccond/codec"
	"xdao.co/ccond/pss"
)

const (
	RsaMinModulusSize = 128
	RsaMaxModulusSize = 512
)

// RsaSha256 is an RSASSA-PSS (SHA-256, 32-byte salt, e=65537) signature
// together with the signer's modulus.
type RsaSha256 struct {
	modulus   []byte
	signature []byte
}

// NewRsaSha256 returns a fulfillment from a big-endian modulus and a
// signature of the same length.
func NewRsaSha256(modulus, signature []byte) (*RsaSha256, error) {
	if err := checkModulus(modulus, KindValidation); err != nil {
		return nil, err
	}
	if len(signature) != len(modulus) {
		return nil, newError(KindValidation, "CC-RSA-003", "signature length must equal modulus length")
	}
	return &RsaSha256{modulus: bytes.Clone(modulus), signature: bytes.Clone(signature)}, nil
}

func checkModulus(m []byte, kind Kind) error {
	if len(m) == 0 {
		return newError(KindMissingData, "CC-RSA-000", "rsa modulus is not set")
	}
	if m[0] == 0 {
		return newError(kind, "CC-RSA-001", "rsa modulus must not have a leading zero byte")
	}
	if len(m) < RsaMinModulusSize || len(m) > RsaMaxModulusSize {
		return newError(kind, "CC-RSA-002",
			fmt.Sprintf("rsa modulus must be %d to %d bytes, got %d", RsaMinModulusSize, RsaMaxModulusSize, len(m)))
	}
	return nil
}

func (f *RsaSha256) Type() TypeID { return TypeRsaSha256 }

func (f *RsaSha256) Modulus() []byte { return bytes.Clone(f.modulus) }

func (f *RsaSha256) Signature() []byte { return bytes.Clone(f.signature) }

// SetPublicModulus sets the modulus and clears any signature.
func (f *RsaSha256) SetPublicModulus(m []byte) error {
	if err := checkModulus(m, KindValidation); err != nil {
		return err
	}
	f.modulus = bytes.Clone(m)
	f.signature = nil
	return nil
}

// Sign sets the modulus from priv and signs message. A nil rnd uses
// crypto/rand for the salt.
func (f *RsaSha256) Sign(message []byte, priv *rsa.PrivateKey, rnd io.Reader) error {
	if priv == nil || priv.N == nil {
		return newError(KindMissingData, "CC-RSA-010", "rsa private key is required")
	}
	modulus := priv.N.Bytes()
	if err := checkModulus(modulus, KindValidation); err != nil {
		return err
	}
	signer := pss.Signer{Scheme: pss.NewScheme(sha256.New, rnd)}
	sig, err := signer.Sign(priv, message)
	if err != nil {
		if errors.Is(err, pss.ErrExponent) {
			return wrapError(KindValidation, "CC-RSA-011", "unsupported rsa public exponent", err)
		}
		return wrapError(KindInternal, "CC-RSA-012", "rsa-pss signing failed", err)
	}
	f.modulus = modulus
	f.signature = sig
	return nil
}

func (f *RsaSha256) Subtypes() (TypeSet, error) { return 0, nil }

func (f *RsaSha256) Cost() (uint64, error) {
	if len(f.modulus) == 0 {
		return 0, newError(KindMissingData, "CC-RSA-000", "rsa modulus is not set")
	}
	n := uint64(len(f.modulus))
	return n * n, nil
}

func (f *RsaSha256) Condition() (Condition, error) { return conditionOf(f) }

func (f *RsaSha256) Validate(message []byte) error {
	if err := checkModulus(f.modulus, KindValidation); err != nil {
		return err
	}
	if len(f.signature) != len(f.modulus) {
		return newError(KindValidation, "CC-RSA-103", "signature length must equal modulus length")
	}
	signer := pss.Signer{Scheme: pss.NewScheme(sha256.New, nil)}
	if !signer.Verify(f.modulus, message, f.signature) {
		return newError(KindValidation, "CC-RSA-104", "rsa-pss signature is invalid")
	}
	return nil
}

func (f *RsaSha256) writeFingerprint(w codec.Writer) error {
	if len(f.modulus) == 0 {
		return newError(KindMissingData, "CC-RSA-000", "rsa modulus is not set")
	}
	w.WriteBytes(f.modulus)
	return nil
}

func (f *RsaSha256) requireSigned() error {
	if len(f.modulus) == 0 {
		return newError(KindMissingData, "CC-RSA-000", "rsa modulus is not set")
	}
	if len(f.signature) == 0 {
		return newError(KindMissingData, "CC-RSA-020", "rsa signature is not set")
	}
	return nil
}

func (f *RsaSha256) writePayload(w codec.Writer) error {
	if err := f.requireSigned(); err != nil {
		return err
	}
	w.WriteVarBytes(f.modulus)
	w.WriteVarBytes(f.signature)
	return nil
}

func (f *RsaSha256) set(modulus, signature []byte) error {
	if err := checkModulus(modulus, KindParse); err != nil {
		return err
	}
	if len(signature) != len(modulus) {
		return newError(KindParse, "CC-RSA-003", "signature length must equal modulus length")
	}
	f.modulus = modulus
	f.signature = signature
	return nil
}

func (f *RsaSha256) readPayload(r *codec.Reader, _ *decoder) error {
	m, err := r.ReadVarBytes()
	if err != nil {
		return wrapCodec("CC-RSA-030", "read rsa modulus", err)
	}
	s, err := r.ReadVarBytes()
	if err != nil {
		return wrapCodec("CC-RSA-031", "read rsa signature", err)
	}
	return f.set(m, s)
}

func (f *RsaSha256) derBody() ([]byte, error) {
	if err := f.requireSigned(); err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	addOctets(b, 0, f.modulus)
	addOctets(b, 1, f.signature)
	return b.Bytes()
}

func (f *RsaSha256) readDER(body *cryptobyte.String, _ *decoder) error {
	var m, s []byte
	if !body.ReadASN1Bytes(&m, implicitTag(0)) {
		return derError(*body, "CC-RSA-032", "malformed rsa modulus")
	}
	if !body.ReadASN1Bytes(&s, implicitTag(1)) {
		return derError(*body, "CC-RSA-033", "malformed rsa signature")
	}
	return f.set(bytes.Clone(m), bytes.Clone(s))
}
