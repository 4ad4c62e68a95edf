package model

import (
	"strings"
	"time"
)

// UserProfile is created lazily on first sign-in and never deleted by the
// client layer.
type UserProfile struct {
	ID          string    `json:"id"` // equals the auth identity id
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserIdentity is the resolved authenticated identity for the page lifetime.
type UserIdentity struct {
	ID    string
	Email string
}

// DefaultDisplayName derives a display name from an email address: the local
// part before the "@", or the whole string if there is none.
func DefaultDisplayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	if email == "" {
		return "User"
	}
	return email
}
