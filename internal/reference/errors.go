package reference

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when a go/types type has no TypeRef shape
// (channels, function types, struct and non-empty interface literals).
var ErrUnsupportedType = errors.New("unsupported type")

// ErrInvalidReference is returned by Validate for a malformed token.
var ErrInvalidReference = errors.New("invalid reference")

func invalidf(token fmt.Stringer, format string, args ...any) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidReference, token, fmt.Sprintf(format, args...))
}

// ResolutionError reports that a token could not be mapped to a live entity.
type ResolutionError struct {
	Token  string // readable form of the token
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve %s: %s", e.Token, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func resolutionErrorf(token fmt.Stringer, format string, args ...any) *ResolutionError {
	return &ResolutionError{Token: token.String(), Reason: fmt.Sprintf(format, args...)}
}
