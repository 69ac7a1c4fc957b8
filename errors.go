package downblog

import (
	"errors"
	"fmt"
)

var (
	ErrPostExists   = errors.New("post already exists")
	ErrPostNotFound = errors.New("post not found")
	ErrNilStore     = errors.New("a post store is required")
)

// ValidationError reports the first invalid field of a post.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if err is, or wraps, a validation error.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// NotFoundError is returned when an operation targets a post id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("post with id %q does not exist", e.ID)
}

// Is lets errors.Is(err, ErrPostNotFound) match a NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPostNotFound
}

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound)
}

// StorageError wraps a failure of the underlying data store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a StorageError for the named operation. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError checks if err is, or wraps, a storage error.
func IsStorageError(err error) bool {
	var storeErr *StorageError
	return errors.As(err, &storeErr)
}
