package ccond

import (
	"math/bits"
	"strings"
)

// TypeID identifies a condition type. It is the ASN.1 CHOICE tag used for
// both the condition and the fulfillment of that type.
type TypeID uint8

const (
	TypePreimageSha256  TypeID = 0
	TypePrefixSha256    TypeID = 1
	TypeThresholdSha256 TypeID = 2
	TypeRsaSha256       TypeID = 3
	TypeEd25519Sha256   TypeID = 4
)

const (
	// HashSize is the fingerprint length of every SHA-256 condition type.
	HashSize = 32
	// MaxCost is the largest cost a condition may declare.
	MaxCost = 2097152

	maxTypeID = 31
)

var typeNames = [...]string{
	TypePreimageSha256:  "preimage-sha-256",
	TypePrefixSha256:    "prefix-sha-256",
	TypeThresholdSha256: "threshold-sha-256",
	TypeRsaSha256:       "rsa-sha-256",
	TypeEd25519Sha256:   "ed25519-sha-256",
}

// Name returns the registered type name, e.g. "preimage-sha-256".
func (t TypeID) Name() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

func (t TypeID) String() string { return t.Name() }

// Compound reports whether conditions of this type carry subtypes.
func (t TypeID) Compound() bool {
	return t == TypePrefixSha256 || t == TypeThresholdSha256
}

// Bit returns the type's bit in a legacy feature bitmask.
func (t TypeID) Bit() uint32 { return 1 << t }

func typeIDByName(name string) (TypeID, bool) {
	for i, n := range typeNames {
		if n == name {
			return TypeID(i), true
		}
	}
	return 0, false
}

// TypeSet is a set of condition types, stored as a bitmask indexed by TypeID.
type TypeSet uint32

// NewTypeSet returns the set containing ts.
func NewTypeSet(ts ...TypeID) TypeSet {
	var s TypeSet
	for _, t := range ts {
		s = s.Add(t)
	}
	return s
}

func (s TypeSet) Has(t TypeID) bool {
	return t <= maxTypeID && s&(1<<t) != 0
}

func (s TypeSet) Add(t TypeID) TypeSet {
	if t > maxTypeID {
		return s
	}
	return s | 1<<t
}

func (s TypeSet) Remove(t TypeID) TypeSet {
	if t > maxTypeID {
		return s
	}
	return s &^ (1 << t)
}

func (s TypeSet) Union(o TypeSet) TypeSet { return s | o }

func (s TypeSet) Empty() bool { return s == 0 }

func (s TypeSet) Len() int { return bits.OnesCount32(uint32(s)) }

// Types returns the members in ascending TypeID order.
func (s TypeSet) Types() []TypeID {
	out := make([]TypeID, 0, s.Len())
	for v := uint32(s); v != 0; v &= v - 1 {
		out = append(out, TypeID(bits.TrailingZeros32(v)))
	}
	return out
}

// String renders the set as comma-separated type names in TypeID order.
func (s TypeSet) String() string {
	ts := s.Types()
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}
	return strings.Join(names, ",")
}

// appendBitString appends the DER contents of a named-bit-list BIT STRING:
// the unused-bit count followed by the bits, trailing zero bits removed.
func (s TypeSet) appendBitString(dst []byte) []byte {
	if s == 0 {
		return append(dst, 0)
	}
	highest := 31 - bits.LeadingZeros32(uint32(s))
	n := highest/8 + 1
	out := make([]byte, 1+n)
	out[0] = byte(n*8 - (highest + 1))
	for _, t := range s.Types() {
		out[1+int(t)/8] |= 0x80 >> (t % 8)
	}
	return append(dst, out...)
}

// parseBitString is the inverse of appendBitString. Non-DER encodings are
// rejected.
func parseBitString(b []byte) (TypeSet, bool) {
	if len(b) == 0 || b[0] > 7 {
		return 0, false
	}
	unused := int(b[0])
	data := b[1:]
	if len(data) == 0 {
		return 0, unused == 0
	}
	if len(data) > 4 {
		return 0, false
	}
	last := data[len(data)-1]
	// Padding bits must be zero and the final named bit must be set.
	if last&(1<<unused-1) != 0 || last&(1<<unused) == 0 {
		return 0, false
	}
	var s TypeSet
	for i, c := range data {
		for j := 0; j < 8; j++ {
			if c&(0x80>>j) != 0 {
				s = s.Add(TypeID(i*8 + j))
			}
		}
	}
	return s, true
}
