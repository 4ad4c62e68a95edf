package board

import (
	"context"
	"errors"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
)

// ErrPageClosed is returned by page methods after Close; a reply racing the
// close is dropped rather than applied to dead state.
var ErrPageClosed = errors.New("board: page closed")

func closedErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrPageClosed
}

// userMessage extracts the human-facing message from a typed failure, or
// empty if the error carries none.
func userMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
