package pss

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"
	"io"
)

// SaltLengthEqualsHash selects a salt as long as the hash output.
const SaltLengthEqualsHash = -1

var ErrEncodingTooShort = errors.New("pss: intended encoded message length too short")

// Scheme holds the EMSA-PSS parameters. The same hash is used for the
// message digest and for MGF1.
type Scheme struct {
	Hash func() hash.Hash
	// SaltLength is the salt size in bytes, or SaltLengthEqualsHash.
	SaltLength int
	// Rand is the salt source. Nil means crypto/rand.
	Rand io.Reader
}

// NewScheme returns a Scheme with salt length equal to the hash size.
func NewScheme(newHash func() hash.Hash, rnd io.Reader) *Scheme {
	return &Scheme{Hash: newHash, SaltLength: SaltLengthEqualsHash, Rand: rnd}
}

func (s *Scheme) saltLength(hLen int) int {
	if s.SaltLength == SaltLengthEqualsHash {
		return hLen
	}
	return s.SaltLength
}

func (s *Scheme) rand() io.Reader {
	if s.Rand == nil {
		return rand.Reader
	}
	return s.Rand
}

func (s *Scheme) digest(parts ...[]byte) []byte {
	h := s.Hash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Encode returns EMSA-PSS-ENCODE(message, emBits) with a fresh random salt.
func (s *Scheme) Encode(message []byte, emBits int) ([]byte, error) {
	if s.SaltLength < SaltLengthEqualsHash {
		return nil, fmt.Errorf("pss: invalid salt length %d", s.SaltLength)
	}
	salt := make([]byte, s.saltLength(s.Hash().Size()))
	if _, err := io.ReadFull(s.rand(), salt); err != nil {
		return nil, fmt.Errorf("pss: reading salt: %w", err)
	}
	return s.EncodeWithSalt(message, salt, emBits)
}

// EncodeWithSalt is Encode with a caller-supplied salt. The salt length must
// match the scheme's salt length.
func (s *Scheme) EncodeWithSalt(message, salt []byte, emBits int) ([]byte, error) {
	mHash := s.digest(message)
	hLen := len(mHash)
	sLen := len(salt)
	if want := s.saltLength(hLen); want != sLen {
		return nil, fmt.Errorf("pss: salt is %d bytes, scheme expects %d", sLen, want)
	}
	if emBits < 1 {
		return nil, ErrEncodingTooShort
	}
	emLen := (emBits + 7) / 8
	if emLen < hLen+sLen+2 {
		return nil, ErrEncodingTooShort
	}

	var zeros [8]byte
	h := s.digest(zeros[:], mHash, salt)

	// DB = PS || 0x01 || salt
	db := make([]byte, emLen-hLen-1)
	psLen := emLen - sLen - hLen - 2
	db[psLen] = 0x01
	copy(db[psLen+1:], salt)

	dbMask, err := MGF1(s.Hash, h, len(db))
	if err != nil {
		return nil, err
	}
	for i := range db {
		db[i] ^= dbMask[i]
	}
	db[0] &= 0xff >> (8*emLen - emBits)

	em := make([]byte, 0, emLen)
	em = append(em, db...)
	em = append(em, h...)
	return append(em, 0xbc), nil
}

// Verify reports whether em is a valid EMSA-PSS encoding of message for
// emBits. Every failure returns false.
func (s *Scheme) Verify(message, em []byte, emBits int) bool {
	if emBits < 1 {
		return false
	}
	mHash := s.digest(message)
	hLen := len(mHash)
	sLen := s.saltLength(hLen)
	if sLen < 0 {
		return false
	}
	emLen := (emBits + 7) / 8
	if len(em) != emLen || emLen < hLen+sLen+2 {
		return false
	}
	if em[emLen-1] != 0xbc {
		return false
	}

	maskedDB := em[:emLen-hLen-1]
	h := em[emLen-hLen-1 : emLen-1]
	topMask := byte(0xff >> (8*emLen - emBits))
	if maskedDB[0]&^topMask != 0 {
		return false
	}

	dbMask, err := MGF1(s.Hash, h, len(maskedDB))
	if err != nil {
		return false
	}
	db := make([]byte, len(maskedDB))
	for i := range db {
		db[i] = maskedDB[i] ^ dbMask[i]
	}
	db[0] &= topMask

	psLen := emLen - hLen - sLen - 2
	for _, b := range db[:psLen] {
		if b != 0 {
			return false
		}
	}
	if db[psLen] != 0x01 {
		return false
	}
	salt := db[len(db)-sLen:]

	var zeros [8]byte
	h2 := s.digest(zeros[:], mHash, salt)
	return subtle.ConstantTimeCompare(h, h2) == 1
}
