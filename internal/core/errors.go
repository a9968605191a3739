package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across layers. Every typed error below
// matches exactly one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports bad input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError covers both missing rows and rows owned by someone else.
type NotFoundError struct {
	Resource string
	ID       int64
}

func NewNotFoundError(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError is returned when concurrent writers collided. Attempts is 0
// when the error comes straight from storage and the number of tries when
// a retry loop gave up.
type ConflictError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s: conflict after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: conflict: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StorageError wraps an unexpected failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsRetryable reports whether err is a write conflict worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
