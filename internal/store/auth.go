package store

import (
	"context"
	"net/http"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// RequestSignInLink asks the store to issue a single-use sign-in token for
// the email. The dev store returns the token directly; a hosted store would
// e-mail it instead, in which case the returned string is empty.
func (c *Client) RequestSignInLink(ctx context.Context, email string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/link", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// VerifySignIn exchanges a sign-in token for a bearer access token and
// installs it on the client.
func (c *Client) VerifySignIn(ctx context.Context, email, token string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"email": email, "token": token}
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", nil, body, &resp); err != nil {
		return "", err
	}
	c.SetAccessToken(resp.AccessToken)
	return resp.AccessToken, nil
}

// CurrentUser resolves the identity behind the installed access token.
func (c *Client) CurrentUser(ctx context.Context) (*model.UserIdentity, error) {
	var resp struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &model.UserIdentity{ID: resp.ID, Email: resp.Email}, nil
}
