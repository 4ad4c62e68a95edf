package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
)

// ProfileService implements profile reads and the lazy first-sign-in
// creation flow.
type ProfileService struct {
	repo   repository.ProfileRepository
	logger *slog.Logger
}

// NewProfileService wires the service.
func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger}
}

// Get retrieves a profile by id.
func (s *ProfileService) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	return s.repo.GetProfileByID(ctx, id)
}

// Create inserts the caller's own profile row. Conflicts bubble up typed;
// the client treats losing the creation race as success.
func (s *ProfileService) Create(ctx context.Context, callerID string, p model.UserProfile) (*model.UserProfile, error) {
	if p.ID != callerID {
		return nil, apperror.Forbidden("you can only create your own profile")
	}
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		p.DisplayName = model.DefaultDisplayName(p.Email)
	}
	if err := s.repo.CreateProfile(ctx, &p); err != nil {
		return nil, err
	}
	s.logger.Info("profile created", slog.String("id", p.ID))
	return &p, nil
}

// UpdateDisplayName changes the caller's own display name.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, callerID, id, displayName string) (*model.UserProfile, error) {
	if id != callerID {
		return nil, apperror.Forbidden("you can only edit your own profile")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperror.ValidationFailed("display_name", "display name is required")
	}
	return s.repo.UpdateDisplayName(ctx, id, displayName)
}
