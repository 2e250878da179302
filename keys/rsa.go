package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	rsaExponent   = 65537
	minRSAModulus = 128
	maxRSAModulus = 512
)

// ParseRSAPrivateKeyPEM parses a PKCS#1 or PKCS#8 RSA private key. The key
// must use e=65537 and a 1024- to 4096-bit modulus.
func ParseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS#8 key is %T, not RSA", k)
		}
		key = rk
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
	if err := CheckRSAKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadRSAPrivateKeyFile reads a PEM RSA private key from path.
func LoadRSAPrivateKeyFile(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRSAPrivateKeyPEM(data)
}

// CheckRSAKey reports whether key can sign RSA-SHA-256 fulfillments.
func CheckRSAKey(key *rsa.PrivateKey) error {
	if key == nil {
		return errors.New("missing rsa private key")
	}
	if key.E != rsaExponent {
		return fmt.Errorf("rsa public exponent must be %d, got %d", rsaExponent, key.E)
	}
	if n := key.Size(); n < minRSAModulus || n > maxRSAModulus {
		return fmt.Errorf("rsa modulus must be %d to %d bytes, got %d", minRSAModulus, maxRSAModulus, n)
	}
	return nil
}

// GenerateRSAKey returns a new key with e=65537.
func GenerateRSAKey(rand io.Reader, bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand, bits)
	if err != nil {
		return nil, err
	}
	if err := CheckRSAKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeRSAPrivateKeyPEM renders key as a PKCS#1 PEM block.
func EncodeRSAPrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}
