package codec

import (
	"hash"
)

// Writer is the sink contract every fulfillment variant encodes against.
//
// Errors are sticky: after the first failure all further writes are no-ops
// and Err reports the failure.
type Writer interface {
	WriteBytes(p []byte)
	WriteUint8(v uint8)
	WriteVarUint(v uint64)
	WriteVarBytes(p []byte)
	Err() error
}

// sink adapts a raw append function to the Writer contract.
type sink struct {
	emit func(p []byte)
	err  error
	tmp  [10]byte
}

func (s *sink) WriteBytes(p []byte) {
	if s.err != nil {
		return
	}
	s.emit(p)
}

func (s *sink) WriteUint8(v uint8) {
	if s.err != nil {
		return
	}
	s.tmp[0] = v
	s.emit(s.tmp[:1])
}

func (s *sink) WriteVarUint(v uint64) {
	if s.err != nil {
		return
	}
	enc, err := AppendVarUint(s.tmp[:0], v)
	if err != nil {
		s.err = err
		return
	}
	s.emit(enc)
}

func (s *sink) WriteVarBytes(p []byte) {
	s.WriteVarUint(uint64(len(p)))
	s.WriteBytes(p)
}

func (s *sink) Err() error { return s.err }

// Buffer accumulates encoded bytes.
type Buffer struct {
	sink
	buf []byte
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.emit = func(p []byte) { b.buf = append(b.buf, p...) }
	return b
}

// Bytes returns the accumulated bytes, or the first write error.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.buf == nil {
		return []byte{}, nil
	}
	return b.buf, nil
}

// Predictor tallies the size of what would have been written.
type Predictor struct {
	sink
	size int
}

func NewPredictor() *Predictor {
	p := &Predictor{}
	p.emit = func(b []byte) { p.size += len(b) }
	return p
}

// Size returns the number of bytes written so far.
func (p *Predictor) Size() int { return p.size }

// Hasher feeds everything written into a hash function.
type Hasher struct {
	sink
	h hash.Hash
}

func NewHasher(newHash func() hash.Hash) *Hasher {
	h := &Hasher{h: newHash()}
	h.emit = func(p []byte) { _, _ = h.h.Write(p) }
	return h
}

// Sum returns the digest of everything written, or the first write error.
func (h *Hasher) Sum() ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.h.Sum(nil), nil
}
