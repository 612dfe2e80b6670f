// Package apperror defines the error taxonomy shared by every layer.
//
// Errors fall into two groups:
//   - recoverable: NotFound, Private, Unavailable, Malformed. The pipeline
//     absorbs them for a single user or a single game and moves on.
//   - fatal: Upstream, Integrity, and any error that is not an *AppError.
//     These end the whole run and the binary exits non-zero.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("Validation Error")
	ErrPrivate     = errors.New("private")
	ErrUnavailable = errors.New("unavailable")
	ErrMalformed   = errors.New("malformed record")
	ErrUpstream    = errors.New("upstream failure")
	ErrIntegrity   = errors.New("data integrity violation")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Private reports that a profile or its game list is not publicly visible.
func Private(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrPrivate,
		Message: fmt.Sprintf("%s %v is private", resource, id),
	}
}

// Unavailable reports that the external source has no listing for an item,
// e.g. a delisted app.
func Unavailable(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s %v is unavailable", resource, id),
	}
}

// Malformed reports a record that lacks a field the caller depends on.
func Malformed(resource, field string) *AppError {
	return &AppError{
		Err:     ErrMalformed,
		Message: fmt.Sprintf("%s is missing field %s", resource, field),
		Field:   field,
	}
}

// Upstream reports a failed external call. It is never retried.
func Upstream(message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
}

// Integrity reports a schema or data condition that must not occur, such as
// a table without a primary key or two rows sharing one.
func Integrity(message string) *AppError {
	return &AppError{
		Err:     ErrIntegrity,
		Message: message,
	}
}

// Recoverable reports whether err only ends the current user's or game's
// processing instead of the whole run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPrivate) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrValidation)
}
