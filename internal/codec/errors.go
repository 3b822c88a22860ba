package codec

import (
	"errors"
	"fmt"
)

// ErrValueTooLarge is returned when a compressed integer exceeds MaxCompressedUint.
var ErrValueTooLarge = errors.New("value too large for compressed encoding")

// DecodeError reports a malformed, truncated or unsupported stream.
type DecodeError struct {
	Offset int64 // byte offset at which decoding failed
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode error at offset %d: %s", e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
