// Package store implements the HTTP client for the hosted data store. Every
// method returns either decoded rows or a typed *StoreError; network-level
// failures come back wrapped in apperror.ErrTransport so callers can tell
// "the store said no" apart from "the store was unreachable".
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
)

// Order selects list ordering by creation time. Newest-first is the default
// everywhere.
type Order string

const (
	OrderNewest Order = "newest"
	OrderOldest Order = "oldest"
)

// Client talks to one data store endpoint with one bearer identity.
// Construct it explicitly and pass it to whoever needs it; there is no
// package-level instance.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// New creates a store client for the given base URL. token may be empty for
// the pre-sign-in calls (RequestSignInLink, VerifySignIn).
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// SetAccessToken installs the bearer token used on subsequent calls.
func (c *Client) SetAccessToken(token string) {
	c.token = token
}

// do performs one round-trip. A non-2xx response with a decodable error body
// becomes a *StoreError; anything else (dial failure, timeout, garbage body)
// is a transport failure.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("store: encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("store: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("store request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return transportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		se := &StoreError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(se); err != nil || se.Code == "" {
			return transportErr(fmt.Errorf("store: unexpected status %d", resp.StatusCode))
		}
		return se
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return transportErr(fmt.Errorf("store: decoding response: %w", err))
		}
	}
	return nil
}

func transportErr(err error) error {
	return apperror.Transport(err)
}
