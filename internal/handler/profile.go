package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/auth"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/service"
)

// ProfileHandler exposes user profiles over HTTP.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGet serves GET /api/profiles/{id}.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleCreate serves POST /api/profiles. Clients create their own profile
// lazily after first sign-in; a conflict means a concurrent sign-in won.
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in first"))
		return
	}

	var profile model.UserProfile
	if err := decodeBody(r, &profile); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.profiles.Create(r.Context(), ident.UserID, profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate serves PATCH /api/profiles/{id}.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in first"))
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdateDisplayName(r.Context(), ident.UserID, chi.URLParam(r, "id"), req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
