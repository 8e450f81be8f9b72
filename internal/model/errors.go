package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store lookups for a clean miss. Callers
// check it explicitly; a missing record is not an exceptional failure.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors).
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// EnvironmentError means an operation required a persistent storage
// backend and none is available. It is fatal to the attempted operation
// and distinguishes "no backend" from "no data".
type EnvironmentError struct {
	Message string
}

func (e EnvironmentError) Error() string {
	return fmt.Sprintf("environment error: %s", e.Message)
}

// NewEnvironmentError constructs EnvironmentError.
func NewEnvironmentError(message string) EnvironmentError {
	return EnvironmentError{Message: message}
}

// IsEnvironmentError checks if error is EnvironmentError.
func IsEnvironmentError(err error) bool {
	var ee EnvironmentError
	return errors.As(err, &ee)
}

// ConflictError represents a unique constraint or duplicate resource error.
type ConflictError struct {
	Field   string
	Message string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
}

// NewConflictError constructs ConflictError.
func NewConflictError(field, message string) ConflictError {
	return ConflictError{Field: field, Message: message}
}

// IsConflictError checks if error is ConflictError.
func IsConflictError(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}
