package stabilize

import (
	"errors"
	"fmt"
)

// ErrSealed is returned when a forwarder is added to a finalized synthetic type.
var ErrSealed = errors.New("synthetic type is sealed")

// ErrNotFinalized is returned when rendering a module with open synthetic types.
var ErrNotFinalized = errors.New("synthetic module is not finalized")

// UnsupportedBindingError reports an entity the generated package cannot
// forward to.
type UnsupportedBindingError struct {
	Subject string
	Reason  string
}

func (e *UnsupportedBindingError) Error() string {
	return fmt.Sprintf("unsupported binding %s: %s", e.Subject, e.Reason)
}

func unsupported(subject string, format string, args ...any) error {
	return &UnsupportedBindingError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
