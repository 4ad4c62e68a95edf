package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/auth"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
)

// SignInTokenTTL is how long a magic-link token stays redeemable.
const SignInTokenTTL = 15 * time.Minute

// AuthService implements the magic-link sign-in flow. Link tokens are
// random, single-use, and stored only as bcrypt hashes.
type AuthService struct {
	tokens   repository.TokenRepository
	profiles repository.ProfileRepository
	jwt      *auth.TokenService
	hasher   *auth.Hasher
	logger   *slog.Logger
}

// NewAuthService wires the service.
func NewAuthService(tokens repository.TokenRepository, profiles repository.ProfileRepository, jwt *auth.TokenService, hasher *auth.Hasher, logger *slog.Logger) *AuthService {
	return &AuthService{tokens: tokens, profiles: profiles, jwt: jwt, hasher: hasher, logger: logger}
}

// RequestLink creates a sign-in token for the email and returns the
// plaintext token. A real deployment would email it; the dev store hands
// it back in the response so local flows need no mail server.
func (s *AuthService) RequestLink(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", apperror.ValidationFailed("email", "a valid email is required")
	}

	token := xid.New().String() + xid.New().String()
	hash, err := s.hasher.Hash(token)
	if err != nil {
		return "", err
	}
	err = s.tokens.SaveSignInToken(ctx, &repository.SignInToken{
		Email:     email,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(SignInTokenTTL),
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("sign-in link issued", slog.String("email", email))
	return token, nil
}

// Verify redeems a sign-in token for a session token. The link token is
// deleted on success; a second redemption fails.
func (s *AuthService) Verify(ctx context.Context, email, token string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	pending, err := s.tokens.GetSignInToken(ctx, email)
	if err != nil {
		return "", apperror.Unauthorized("no pending sign-in for this email")
	}
	if time.Now().After(pending.ExpiresAt) {
		s.tokens.DeleteSignInToken(ctx, email)
		return "", apperror.Unauthorized("sign-in link expired, request a new one")
	}
	if err := s.hasher.Verify(pending.TokenHash, token); err != nil {
		return "", apperror.Unauthorized("invalid sign-in token")
	}
	if err := s.tokens.DeleteSignInToken(ctx, email); err != nil {
		return "", err
	}

	// Identity id: reuse the profile's id when one exists so a returning
	// user keeps their identity; first-timers get a fresh id and the
	// client creates the profile lazily.
	userID := ""
	if profile, err := s.profiles.GetProfileByEmail(ctx, email); err == nil {
		userID = profile.ID
	} else {
		userID = xid.New().String()
	}

	session, err := s.jwt.Generate(userID, email)
	if err != nil {
		return "", err
	}
	s.logger.Info("sign-in verified",
		slog.String("email", email),
		slog.String("user_id", userID),
	)
	return session, nil
}
