package store

import (
	"context"
	"net/http"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// GetProfile fetches a user profile by identity id.
func (c *Client) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+id, nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile inserts a profile row. A conflict means another sign-in got
// there first; callers treat that as success.
func (c *Client) CreateProfile(ctx context.Context, profile model.UserProfile) error {
	return c.do(ctx, http.MethodPost, "/api/profiles", nil, profile, nil)
}

// UpdateDisplayName changes the acting user's display name.
func (c *Client) UpdateDisplayName(ctx context.Context, id, displayName string) (*model.UserProfile, error) {
	body := map[string]string{"display_name": displayName}
	var profile model.UserProfile
	if err := c.do(ctx, http.MethodPatch, "/api/profiles/"+id, nil, body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
