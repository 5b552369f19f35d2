package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("product not found")
)

// ValidationError reports malformed or out-of-constraint input.
// Fields maps an input field name to what is wrong with it.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Error implements error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", ErrValidation, e.Err)
		}
		return ErrValidation.Error()
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// WithField adds a field message
func (e *ValidationError) WithField(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// NotFoundError reports that no product matches ID for Operation.
type NotFoundError struct {
	ID        string
	Operation string
}

// NewNotFoundError creates a not found error
func NewNotFoundError(operation, id string) *NotFoundError {
	return &NotFoundError{ID: id, Operation: operation}
}

// Error implements error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s with id %s", ErrNotFound, e.Operation, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for any NotFoundError
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsValidation checks if err carries a ValidationError
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound checks if err carries a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
