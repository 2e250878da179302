package codec

import "errors"

var (
	// ErrUnderflow is returned when a read runs past the end of the buffer.
	ErrUnderflow = errors.New("codec: read past end of buffer")
	// ErrParse is returned for malformed or non-minimal encodings.
	ErrParse = errors.New("codec: malformed encoding")
	// ErrOverflow is returned when a value cannot be represented as a varuint.
	ErrOverflow = errors.New("codec: value exceeds varuint range")
)

func IsUnderflow(err error) bool { return errors.Is(err, ErrUnderflow) }
