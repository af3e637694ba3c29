package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test with errors.Is; the HTTP adapter maps them to status codes.
var (
	// ErrValidation: input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound: the referenced row or logical order does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRefused: a business rule blocks the operation (e.g. variety still referenced).
	ErrRefused = errors.New("refused")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func refusedErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRefused, fmt.Sprintf(format, args...))
}
