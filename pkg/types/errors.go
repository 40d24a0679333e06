package types

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the storage layer. Callers match on these
// with errors.Is to distinguish lookup misses from constraint failures.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a record with the same id already exists.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidTransition indicates a status change that the entity's
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInput indicates a record that fails validation before it
	// reaches the database.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedVersion indicates a trail operation whose version is
	// outside the range this build can replay.
	ErrUnsupportedVersion = errors.New("unsupported trail version")

	// ErrUnknownOperation indicates a trail operation whose op or entity
	// field no handler recognizes.
	ErrUnknownOperation = errors.New("unknown trail operation")

	// ErrSuperseded indicates a write against a decision that has already
	// been superseded.
	ErrSuperseded = errors.New("decision is superseded")
)

// WrapInvalid builds a validation error that matches ErrInvalidInput.
func WrapInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
