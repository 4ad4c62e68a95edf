package handler

import (
	"log/slog"
	"net/http"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/auth"
	"github.com/jeyaram1023/doubt-wala/internal/service"
)

// AuthHandler implements the magic-link sign-in endpoints.
//
//   - HandleRequestLink → issue a single-use sign-in token for an email
//   - HandleVerify      → redeem the token for a bearer access token
//   - HandleUser        → resolve the identity behind the presented token
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// HandleRequestLink serves POST /api/auth/link. The dev store returns the
// token in the response body instead of emailing it.
func (h *AuthHandler) HandleRequestLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.authSvc.RequestLink(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleVerify serves POST /api/auth/verify.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.authSvc.Verify(r.Context(), req.Email, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": session})
}

// HandleUser serves GET /api/auth/user.
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("missing or invalid access token"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    ident.UserID,
		"email": ident.Email,
	})
}
