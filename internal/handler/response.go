package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
)

// ErrorResponse is the error shape every endpoint returns. The "error"
// field is the machine-readable code clients branch on; "message" is for
// humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends data with the given status. Headers must be set before
// the body is written; WriteHeader flushes them.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response failed", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a service error to an HTTP status and the standard
// error body. Unknown errors become an opaque 500 so internals never leak
// to clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		code := "internal_error"
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			code = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			code = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			code = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			code = "conflict"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			code = "unauthorized"
		}
		writeJSON(w, status, ErrorResponse{Error: code, Message: appErr.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}
