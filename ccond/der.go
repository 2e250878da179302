package ccond

import (
	"bytes"
	"slices"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

func choiceTag(t TypeID) asn1.Tag { return asn1.Tag(t).ContextSpecific().Constructed() }

func implicitTag(n uint8) asn1.Tag { return asn1.Tag(n).ContextSpecific() }

func constructedTag(n uint8) asn1.Tag { return asn1.Tag(n).ContextSpecific().Constructed() }

// choiceID extracts the alternative number from a context-specific
// constructed CHOICE tag.
func choiceID(tag asn1.Tag) (uint64, bool) {
	if tag&0xe0 != 0xa0 {
		return 0, false
	}
	return uint64(tag & 0x1f), true
}

func addOctets(b *cryptobyte.Builder, n uint8, v []byte) {
	b.AddASN1(implicitTag(n), func(b *cryptobyte.Builder) { b.AddBytes(v) })
}

// derTruncated reports whether the element at the start of s declares more
// content than s holds. It separates underflow from malformed input.
func derTruncated(s []byte) bool {
	if len(s) < 2 {
		return true
	}
	l := int(s[1])
	hdr := 2
	if l&0x80 != 0 {
		n := l & 0x7f
		if n == 0 || n > 4 {
			return false
		}
		if len(s) < 2+n {
			return true
		}
		l = 0
		for _, c := range s[2 : 2+n] {
			l = l<<8 | int(c)
		}
		hdr += n
	}
	return len(s) < hdr+l
}

func derError(s []byte, ruleID, msg string) error {
	if derTruncated(s) {
		return newError(KindUnderflow, ruleID, msg)
	}
	return newError(KindParse, ruleID, msg)
}

// sortedSetOf concatenates DER elements in SET OF order.
func sortedSetOf(elems [][]byte) []byte {
	sorted := slices.Clone(elems)
	slices.SortFunc(sorted, bytes.Compare)
	return bytes.Join(sorted, nil)
}

const sequenceTag = asn1.SEQUENCE
