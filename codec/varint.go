package codec

import "fmt"

// maxShift bounds decoding to seven groups (49 bits) so every decoded value
// stays an exact integer in IEEE-754 doubles, which other implementations
// of this encoding use for their integers.
const maxShift = 45

// MaxVarUint is the largest value that round-trips through the encoding.
const MaxVarUint = 1<<49 - 1

// VarUintSize returns the number of bytes AppendVarUint emits for v.
func VarUintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// AppendVarUint appends the minimal encoding of v to dst.
func AppendVarUint(dst []byte, v uint64) ([]byte, error) {
	if v > MaxVarUint {
		return dst, fmt.Errorf("%w: %d", ErrOverflow, v)
	}
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v)), nil
}

// DecodeVarUint decodes a varuint from the start of src and returns the value
// and the number of bytes consumed.
func DecodeVarUint(src []byte) (uint64, int, error) {
	var v uint64
	for i, shift := 0, uint(0); ; i, shift = i+1, shift+7 {
		if shift > maxShift {
			return 0, 0, fmt.Errorf("%w: varuint exceeds %d bits", ErrParse, maxShift+7)
		}
		if i >= len(src) {
			return 0, 0, ErrUnderflow
		}
		b := src[i]
		v |= uint64(b&0x7f) << shift
		if b&0x80 != 0 {
			continue
		}
		if b == 0 && i > 0 {
			return 0, 0, fmt.Errorf("%w: non-minimal varuint", ErrParse)
		}
		return v, i + 1, nil
	}
}
