package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/auth"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
	"github.com/jeyaram1023/doubt-wala/internal/service"
)

// QuestionHandler exposes question CRUD over HTTP.
type QuestionHandler struct {
	questions *service.QuestionService
	logger    *slog.Logger
}

func NewQuestionHandler(questions *service.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, logger: logger}
}

// questionDraft is the request body for POST /api/questions.
type questionDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// HandleList serves GET /api/questions. The order query parameter accepts
// "newest" (default) or "oldest".
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	questions, err := h.questions.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// HandleGet serves GET /api/questions/{id}.
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	question, err := h.questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

// HandleCreate serves POST /api/questions.
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to post a question"))
		return
	}

	var draft questionDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, err)
		return
	}

	question, err := h.questions.Create(r.Context(), ident.UserID, draft.Title, draft.Description, draft.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

// HandleUpdate serves PATCH /api/questions/{id}. Only fields present in the
// body change.
func (h *QuestionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to edit a question"))
		return
	}

	var patch model.QuestionPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	question, err := h.questions.Update(r.Context(), ident.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

// HandleDelete serves DELETE /api/questions/{id}.
func (h *QuestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to delete a question"))
		return
	}
	if err := h.questions.Delete(r.Context(), ident.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMine serves GET /api/me/questions.
func (h *QuestionHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in first"))
		return
	}
	questions, err := h.questions.ListByUser(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// listOptions reads ordering from the request query.
func listOptions(r *http.Request) repository.ListOptions {
	return repository.ListOptions{
		Oldest: r.URL.Query().Get("order") == "oldest",
	}
}
