package pss

import (
	"encoding/binary"
	"errors"
	"hash"
)

var errMaskTooLong = errors.New("pss: mask too long")

// MGF1 returns a mask of length bytes derived from seed.
func MGF1(newHash func() hash.Hash, seed []byte, length int) ([]byte, error) {
	if length < 0 {
		return nil, errors.New("pss: negative mask length")
	}
	h := newHash()
	hLen := h.Size()
	if uint64(length) > uint64(hLen)<<32 {
		return nil, errMaskTooLong
	}

	out := make([]byte, 0, length+hLen)
	var counter [4]byte
	for i := uint32(0); len(out) < length; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h.Reset()
		h.Write(seed)
		h.Write(counter[:])
		out = h.Sum(out)
	}
	return out[:length], nil
}
