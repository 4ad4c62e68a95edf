package store

import (
	"errors"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
)

// Error codes returned by the data store. They mirror the wire-level
// "error" field so callers can branch without string-matching messages.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict" // uniqueness violation
	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal_error"
)

// StoreError is a typed failure from the data store, as opposed to a
// transport failure (which is wrapped in apperror.ErrTransport instead).
type StoreError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"` // HTTP status the store responded with
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Unwrap maps the wire code onto the shared apperror sentinels so callers
// can use errors.Is across the whole stack.
func (e *StoreError) Unwrap() error {
	switch e.Code {
	case CodeValidation:
		return apperror.ErrValidation
	case CodeNotFound:
		return apperror.ErrNotFound
	case CodeConflict:
		return apperror.ErrConflict
	case CodeForbidden:
		return apperror.ErrForbidden
	case CodeUnauthorized:
		return apperror.ErrUnauthorized
	}
	return nil
}

// IsNotFound reports whether err is a typed not-found store failure.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == CodeNotFound
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == CodeConflict
}

// IsTransport reports whether err is a network-level failure rather than a
// typed store response.
func IsTransport(err error) bool {
	return errors.Is(err, apperror.ErrTransport)
}
