package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference is returned for malformed canonical references.
	ErrInvalidReference = errors.New("invalid canonical reference")

	ErrInvalidInput = errors.New("invalid input")

	ErrNotFound = errors.New("not found")
)

// ReferenceError describes a canonical reference that could not be parsed.
type ReferenceError struct {
	Ref    string
	Reason string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid canonical reference %q: %s", e.Ref, e.Reason)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError reports a missing resource such as a reference absent from
// the stored cross-reference snapshot.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
