package codec

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"
)

func TestVarUint_KnownEncodings(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{MaxVarUint, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}
	for _, c := range cases {
		got, err := AppendVarUint(nil, c.v)
		if err != nil {
			t.Fatalf("AppendVarUint(%d): %v", c.v, err)
		}
		if !bytes.Equal(got, c.want) {
			t.Fatalf("AppendVarUint(%d) = %x, want %x", c.v, got, c.want)
		}
		if n := VarUintSize(c.v); n != len(c.want) {
			t.Fatalf("VarUintSize(%d) = %d, want %d", c.v, n, len(c.want))
		}
		v, n, err := DecodeVarUint(c.want)
		if err != nil {
			t.Fatalf("DecodeVarUint(%x): %v", c.want, err)
		}
		if v != c.v || n != len(c.want) {
			t.Fatalf("DecodeVarUint(%x) = (%d, %d), want (%d, %d)", c.want, v, n, c.v, len(c.want))
		}
	}
}

func TestVarUint_Overflow(t *testing.T) {
	if _, err := AppendVarUint(nil, MaxVarUint+1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	eightGroups := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	if _, _, err := DecodeVarUint(eightGroups); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for 8 groups, got %v", err)
	}
}

func TestVarUint_RejectsNonMinimal(t *testing.T) {
	if _, _, err := DecodeVarUint([]byte{0x81, 0x00}); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestVarUint_Underflow(t *testing.T) {
	if _, _, err := DecodeVarUint([]byte{0x80}); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if _, _, err := DecodeVarUint(nil); !IsUnderflow(err) {
		t.Fatalf("expected ErrUnderflow on empty input, got %v", err)
	}
}

func writeSample(w Writer) {
	w.WriteUint8(7)
	w.WriteVarUint(300)
	w.WriteVarBytes([]byte("hello"))
	w.WriteBytes(bytes.Repeat([]byte{0xaa}, 200))
	w.WriteVarBytes(nil)
}

func TestWriters_AgreeOnOneEncoding(t *testing.T) {
	buf := NewBuffer()
	writeSample(buf)
	out, err := buf.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	p := NewPredictor()
	writeSample(p)
	if p.Size() != len(out) {
		t.Fatalf("Predictor.Size = %d, Buffer wrote %d", p.Size(), len(out))
	}

	h := NewHasher(sha256.New)
	writeSample(h)
	sum, err := h.Sum()
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	want := sha256.Sum256(out)
	if !bytes.Equal(sum, want[:]) {
		t.Fatalf("Hasher digest mismatch")
	}
}

func TestWriter_StickyError(t *testing.T) {
	buf := NewBuffer()
	buf.WriteVarUint(MaxVarUint + 1)
	buf.WriteBytes([]byte{1, 2, 3})
	if _, err := buf.Bytes(); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected sticky ErrOverflow, got %v", err)
	}
}

func TestBuffer_EmptyIsNonNil(t *testing.T) {
	out, err := NewBuffer().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}
