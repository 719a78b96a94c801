package store

import (
	"errors"
	"fmt"

	"github.com/benvon/taskwise/internal/models"
)

var (
	// ErrValidation matches any *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches any *NotFoundError
	ErrNotFound = errors.New("task not found")
	// ErrPersistence matches any *PersistenceError
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError rejects a create or update. The collection is unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) succeed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports an operation on an id that is not in the collection
type NotFoundError struct {
	ID models.TaskID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError wraps a load or save failure.
// In-memory state stays authoritative when one occurs.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s tasks: %v", e.Op, e.Err)
}

// Is makes errors.Is(err, ErrPersistence) succeed
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFoundError checks if an error is a missing-task failure
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
