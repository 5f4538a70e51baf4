package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced order, sender or beneficiary
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrLockedOrder indicates a mutation was attempted past the
	// allowed lifecycle point (locked status edit, post-authorization
	// rate override).
	ErrLockedOrder = errors.New("order is locked")
)

// InvalidInputError is a field-scoped validation failure. It is never
// partially applied: the order is left untouched when returned.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// invalidInput is a small constructor used throughout the quote and
// workflow paths.
func invalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// IsInvalidInput reports whether err is (or wraps) a field validation
// failure.
func IsInvalidInput(err error) bool {
	var iie *InvalidInputError
	return errors.As(err, &iie)
}

// CollaboratorError wraps a failure from a downstream collaborator
// (store write, document generation, rate feed). Already-committed
// prior steps are not rolled back; the caller retries the failed step
// or re-enters through Resume.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// CollaboratorFailure wraps err as a retryable collaborator failure.
func CollaboratorFailure(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}

// IsCollaboratorFailure reports whether err is a downstream failure
// that should surface as a single retryable action.
func IsCollaboratorFailure(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
