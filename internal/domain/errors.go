package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the service layer wraps exactly one
// of these, so callers classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("concurrent modification")
	ErrDependency   = errors.New("dependency failure")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrLineNotFound      = fmt.Errorf("%w: item no longer in cart", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrOrderLineNotFound = fmt.Errorf("%w: item no longer in order", ErrNotFound)
	ErrEmptyOrder        = fmt.Errorf("%w: cannot place an empty order", ErrInvalidInput)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
