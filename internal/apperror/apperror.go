// Package apperror defines the error taxonomy shared by the board client
// layers and the dev store. Callers discriminate with errors.Is against the
// sentinel values; the human-readable message lives on AppError.
package apperror

import (
	"errors"
	"fmt"
)

// Client-side failure classes. The cache layer returns these instead of
// letting raw store or transport errors escape its boundary.
var (
	ErrFetch     = errors.New("fetch failed")
	ErrMutation  = errors.New("mutation failed")
	ErrVote      = errors.New("vote rejected")
	ErrTransport = errors.New("transport failure")
)

// Store-side failure classes, also used by the dev store's HTTP layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError carries a sentinel class plus a message fit for display.
type AppError struct {
	Err     error  // sentinel class, matched with errors.Is
	Message string // human-readable description
	Field   string // optional: input field that caused the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Fetch wraps a read failure. The caller is expected to render a retryable
// empty state, never a partial result.
func Fetch(what string) *AppError {
	return &AppError{
		Err:     ErrFetch,
		Message: fmt.Sprintf("failed to load %s", what),
	}
}

// Mutation wraps a create/update/delete failure after local state has been
// rolled back.
func Mutation(what string) *AppError {
	return &AppError{
		Err:     ErrMutation,
		Message: fmt.Sprintf("failed to %s", what),
	}
}

// VoteFailed wraps a failed vote round-trip.
func VoteFailed() *AppError {
	return &AppError{
		Err:     ErrVote,
		Message: "failed to record vote",
	}
}

// SelfVote is returned before any store call when a user votes on their own
// answer.
func SelfVote() *AppError {
	return &AppError{
		Err:     ErrVote,
		Message: "you cannot vote on your own answer",
	}
}

// Transport wraps a network-level failure that is not a typed store error.
func Transport(err error) *AppError {
	return &AppError{
		Err:     ErrTransport,
		Message: "connection to the data store failed",
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// The dev store's HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError indicating a missing or invalid identity.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
