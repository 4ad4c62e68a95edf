// Package auth issues and validates the bearer tokens the dev data store
// hands out after a verified sign-in link.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "doubt-wala"

// AccessTokenTTL is how long a session token stays valid. Magic-link
// sign-in is cheap, so sessions are short-ish rather than refreshed.
const AccessTokenTTL = 24 * time.Hour

// TokenService signs and verifies session tokens with an HMAC secret. The
// same secret serves both directions.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of randomness in real deployments.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is what a validated token resolves to.
type Identity struct {
	UserID string
	Email  string
}

// Generate signs a session token for the given identity.
func (s *TokenService) Generate(userID, email string) (string, error) {
	return s.GenerateWithDuration(userID, email, AccessTokenTTL)
}

// GenerateWithDuration signs a token with a custom expiry. Tests use short
// durations to exercise the expiry path.
func (s *TokenService) GenerateWithDuration(userID, email string, d time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string and returns the identity it
// carries. Only HS256 is accepted; the issuer and expiry are enforced by
// the library.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, errors.New("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, errors.New("auth: token has no subject")
	}
	return Identity{UserID: c.Subject, Email: c.Email}, nil
}
