// Package session resolves the authenticated identity exactly once per page
// lifetime and gates identity-dependent work behind it. Callers never read
// raw token state; they ask the gate.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/store"
)

// IdentityStore is the slice of the store client the gate needs.
type IdentityStore interface {
	CurrentUser(ctx context.Context) (*model.UserIdentity, error)
	GetProfile(ctx context.Context, id string) (*model.UserProfile, error)
	CreateProfile(ctx context.Context, profile model.UserProfile) error
}

// Gate resolves who the acting user is, once, and hands the pinned identity
// to everything downstream. It is confined to the page goroutine.
type Gate struct {
	store  IdentityStore
	logger *slog.Logger

	resolved bool
	identity model.UserIdentity
}

// New creates an unresolved gate.
func New(s IdentityStore, logger *slog.Logger) *Gate {
	return &Gate{store: s, logger: logger}
}

// Resolve asks the store who the bearer token belongs to. The first
// successful call pins the identity for the gate's lifetime; later calls
// return the pinned identity without touching the network.
func (g *Gate) Resolve(ctx context.Context) (model.UserIdentity, error) {
	if g.resolved {
		return g.identity, nil
	}
	user, err := g.store.CurrentUser(ctx)
	if err != nil {
		g.logger.Error("resolving identity failed", slog.String("error", err.Error()))
		return model.UserIdentity{}, apperror.Unauthorized("please sign in to continue")
	}
	g.identity = *user
	g.resolved = true
	g.logger.Info("identity resolved", slog.String("user_id", user.ID))
	return g.identity, nil
}

// Current returns the pinned identity, or false if Resolve has not
// succeeded yet.
func (g *Gate) Current() (model.UserIdentity, bool) {
	return g.identity, g.resolved
}

// Require returns the pinned identity or an unauthorized error. Mutating
// flows call this first so unauthenticated attempts fail before any store
// traffic.
func (g *Gate) Require() (model.UserIdentity, error) {
	if !g.resolved {
		return model.UserIdentity{}, apperror.Unauthorized("please sign in to continue")
	}
	return g.identity, nil
}

// EnsureProfile creates the user's profile row if this is their first
// sign-in. A concurrent sign-in racing the insert loses harmlessly: the
// uniqueness conflict is swallowed and the existing row wins.
func (g *Gate) EnsureProfile(ctx context.Context) (*model.UserProfile, error) {
	user, err := g.Require()
	if err != nil {
		return nil, err
	}

	profile, err := g.store.GetProfile(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !store.IsNotFound(err) {
		g.logger.Error("loading profile failed", slog.String("error", err.Error()))
		return nil, apperror.Fetch("profile")
	}

	fresh := model.UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: model.DefaultDisplayName(user.Email),
	}
	if err := g.store.CreateProfile(ctx, fresh); err != nil && !store.IsConflict(err) {
		g.logger.Error("creating profile failed", slog.String("error", err.Error()))
		return nil, apperror.Mutation("create profile")
	}

	// Re-read so a lost race still returns the row that actually exists.
	profile, err = g.store.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, apperror.Fetch("profile")
	}
	g.logger.Info("profile ensured", slog.String("user_id", user.ID))
	return profile, nil
}

// CheckToken inspects a bearer token's expiry claim without verifying the
// signature; verification is the server's job. It lets the client fail fast
// with a sign-in prompt instead of a cryptic 401 mid-session.
func CheckToken(token string, now time.Time) error {
	if token == "" {
		return apperror.Unauthorized("please sign in to continue")
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return apperror.Unauthorized("your session token is malformed")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return apperror.Unauthorized("your session token is malformed")
	}
	if exp.Before(now) {
		return apperror.Unauthorized(fmt.Sprintf("your session expired %s, please sign in again", exp.Format(time.RFC3339)))
	}
	return nil
}
