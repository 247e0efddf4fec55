package core

import "github.com/pkg/errors"

// ErrPermissionDenied is returned by services when the caller lacks the relation required by an operation.
var ErrPermissionDenied = errors.New("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError returns a ValidationError with a single FieldError.
func NewFieldError(field, msg string) error {
	return NewValidationError(errors.New(msg), FieldError{Field: field, Error: msg})
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type notFound struct {
	message string
}

// NewNotFoundError returns an error reported as "not found" to API clients.
func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (nf notFound) Error() string {
	return nf.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*notFound)
	return ok
}

type conflict struct {
	message string
}

// NewConflictError returns an error for writes rejected by a uniqueness constraint.
func NewConflictError(msg string) error {
	return &conflict{message: msg}
}

func (c conflict) Error() string {
	return c.message
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*conflict)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
