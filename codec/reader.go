package codec

import "fmt"

// Reader consumes an encoded byte string with bounds checks.
//
// Bookmark and Restore form a stack so a caller can try a decoding and rewind
// on failure.
type Reader struct {
	buf       []byte
	off       int
	bookmarks []int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Empty reports whether all bytes have been consumed.
func (r *Reader) Empty() bool { return r.off >= len(r.buf) }

// Bookmark pushes the current cursor position.
func (r *Reader) Bookmark() { r.bookmarks = append(r.bookmarks, r.off) }

// Restore pops the last bookmark and rewinds the cursor to it.
func (r *Reader) Restore() {
	if len(r.bookmarks) == 0 {
		return
	}
	last := len(r.bookmarks) - 1
	r.off = r.bookmarks[last]
	r.bookmarks = r.bookmarks[:last]
}

// Discard pops the last bookmark without moving the cursor.
func (r *Reader) Discard() {
	if len(r.bookmarks) > 0 {
		r.bookmarks = r.bookmarks[:len(r.bookmarks)-1]
	}
}

// Peek returns the next n bytes without consuming them.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length", ErrParse)
	}
	if n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrUnderflow, n, r.Remaining())
	}
	return r.buf[r.off : r.off+n], nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if _, err := r.Peek(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.off += n
	return append([]byte{}, b...), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, err
	}
	r.off++
	return b[0], nil
}

func (r *Reader) ReadVarUint() (uint64, error) {
	v, n, err := DecodeVarUint(r.buf[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

// ReadVarBytes reads a varuint length followed by that many bytes.
func (r *Reader) ReadVarBytes() ([]byte, error) {
	r.Bookmark()
	n, err := r.ReadVarUint()
	if err != nil {
		r.Restore()
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		r.Restore()
		return nil, fmt.Errorf("%w: length prefix %d exceeds %d remaining bytes", ErrUnderflow, n, r.Remaining())
	}
	r.Discard()
	return r.ReadBytes(int(n))
}
