package pss

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"
)

// PublicExponent is the only RSA public exponent accepted.
const PublicExponent = 65537

var (
	ErrExponent  = errors.New("pss: rsa public exponent must be 65537")
	ErrModulus   = errors.New("pss: invalid rsa modulus")
	errNilSigner = errors.New("pss: signer has no scheme")
)

var bigE = big.NewInt(PublicExponent)

// Signer produces and checks RSASSA-PSS signatures with a fixed exponent.
type Signer struct {
	Scheme *Scheme
}

// ModulusBits returns the bit length of a big-endian modulus.
func ModulusBits(modulus []byte) int {
	return new(big.Int).SetBytes(modulus).BitLen()
}

// Sign returns a signature over message that is exactly as long as the
// key's modulus.
func (s Signer) Sign(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	if s.Scheme == nil {
		return nil, errNilSigner
	}
	if priv == nil || priv.N == nil || priv.D == nil {
		return nil, errors.New("pss: missing rsa private key")
	}
	if priv.E != PublicExponent {
		return nil, ErrExponent
	}
	k := (priv.N.BitLen() + 7) / 8
	emBits := priv.N.BitLen() - 1
	em, err := s.Scheme.Encode(message, emBits)
	if err != nil {
		return nil, fmt.Errorf("pss: encoding message: %w", err)
	}

	m := new(big.Int).SetBytes(em)
	if m.Cmp(priv.N) >= 0 {
		return nil, ErrModulus
	}
	sig := new(big.Int).Exp(m, priv.D, priv.N)

	// Catch faults in the private exponent before releasing a signature.
	if new(big.Int).Exp(sig, bigE, priv.N).Cmp(m) != 0 {
		return nil, errors.New("pss: rsa signature self-check failed")
	}
	return sig.FillBytes(make([]byte, k)), nil
}

// Verify reports whether signature is a valid signature over message for the
// big-endian modulus. The signature must be as long as the modulus.
func (s Signer) Verify(modulus, message, signature []byte) bool {
	if s.Scheme == nil || len(modulus) == 0 || len(signature) != len(modulus) {
		return false
	}
	n := new(big.Int).SetBytes(modulus)
	if n.Sign() == 0 {
		return false
	}
	sig := new(big.Int).SetBytes(signature)
	if sig.Cmp(n) >= 0 {
		return false
	}
	m := new(big.Int).Exp(sig, bigE, n)

	emBits := n.BitLen() - 1
	emLen := (emBits + 7) / 8
	if (m.BitLen()+7)/8 > emLen {
		return false
	}
	// When the modulus bit length is 1 mod 8 the encoded message is one
	// byte shorter than the modulus.
	em := m.FillBytes(make([]byte, emLen))
	return s.Scheme.Verify(message, em, emBits)
}
