// Package apperr defines the error taxonomy services return to callers.
// Handlers branch on these with errors.Is to pick a response status.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the actor is authenticated but not authorized.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a state precondition was violated, e.g. a
	// duplicate participant or an already-canceled meeting.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates malformed input rejected before any storage
	// access.
	ErrValidation = errors.New("validation failed")

	// ErrDependency indicates a persistence or object-store call failed.
	// Transient and permanent failures are not distinguished at this layer.
	ErrDependency = errors.New("dependency failure")
)

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrNotFound, args)...)
}

// Forbiddenf wraps ErrForbidden with a formatted detail message.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrForbidden, args)...)
}

// Conflictf wraps ErrConflict with a formatted detail message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrConflict, args)...)
}

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

// Dependency classifies err as a dependency failure, preserving it in the
// chain for logging.
func Dependency(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDependency, err)
}

func prepend(err error, args []any) []any {
	return append([]any{err}, args...)
}
