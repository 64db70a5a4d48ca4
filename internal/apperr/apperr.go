// Package apperr defines the error taxonomy shared by the request boundary:
// handlers match with errors.Is and map each class to a status code, logging
// the wrapped detail but returning only a generic message to callers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence marks store failures: unreachable database, failed
	// query, or a batch write that may have partially committed.
	ErrPersistence = errors.New("persistence failed")
	// ErrExport marks CSV generation or file lifecycle failures.
	ErrExport = errors.New("export failed")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

// Persistence wraps a store error under ErrPersistence, keeping the cause
// chain intact for logging.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Export wraps a file or serialization error under ErrExport.
func Export(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExport, op, err)
}

func prepend(err error, args []any) []any {
	return append([]any{err}, args...)
}
