// Package calcerr holds the error taxonomy shared by the settlement engines.
//
// InvalidInputError reports a malformed or out-of-range field and is always
// raised before any computation starts. AllocationError reports an input set
// whose fields are valid on their own but whose combination cannot be
// apportioned (for example an all-zero measure base).
package calcerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput matches every *InvalidInputError via errors.Is.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAllocation matches every *AllocationError via errors.Is.
	ErrAllocation = errors.New("allocation failed")
)

// InvalidInputError describes a rejected input field
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) succeed
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// AllocationError describes a cost item that cannot be distributed
type AllocationError struct {
	Item   string
	Key    string
	Reason string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation failed for %q (key %s): %s", e.Item, e.Key, e.Reason)
}

// Is lets errors.Is(err, ErrAllocation) succeed
func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocation
}

// Invalid is a shorthand constructor used by the engines
func Invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
