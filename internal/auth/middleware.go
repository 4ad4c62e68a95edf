package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is private so no other package can read or shadow the identity
// stored in the request context.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth enforces a valid Bearer token on protected routes. The
// resolved identity lands in the request context; missing or invalid tokens
// stop the chain with a 401 in the standard error shape.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the identity when a valid token is present but never
// blocks. Read routes use this so anonymous reads still work.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident, err := extractIdentity(r, tokens); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok && ident.UserID != ""
}

func extractIdentity(r *http.Request, tokens *TokenService) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		// Websocket upgrades cannot set headers from browsers; the token
		// rides in the query string there.
		if q := r.URL.Query().Get("token"); q != "" {
			return tokens.Validate(q)
		}
		return Identity{}, errors.New("auth: missing authorization")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Identity{}, errors.New("auth: malformed authorization header")
	}
	return tokens.Validate(raw)
}
