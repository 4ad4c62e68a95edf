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

// AnswerHandler exposes answers and their votes over HTTP.
type AnswerHandler struct {
	answers *service.AnswerService
	logger  *slog.Logger
}

func NewAnswerHandler(answers *service.AnswerService, logger *slog.Logger) *AnswerHandler {
	return &AnswerHandler{answers: answers, logger: logger}
}

// answerDraft is the request body for POST /api/answers.
type answerDraft struct {
	QuestionID string `json:"question_id"`
	Content    string `json:"content"`
}

// voteRequest is the request body for PUT /api/votes.
type voteRequest struct {
	AnswerID string `json:"answer_id"`
	VoteType string `json:"vote_type"`
}

// HandleList serves GET /api/answers?question_id=...&order=...
func (h *AnswerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	questionID := r.URL.Query().Get("question_id")
	if questionID == "" {
		writeError(w, apperror.ValidationFailed("question_id", "question_id is required"))
		return
	}
	answers, err := h.answers.List(r.Context(), questionID, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// HandleGet serves GET /api/answers/{id}.
func (h *AnswerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	answer, err := h.answers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// HandleCreate serves POST /api/answers.
func (h *AnswerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to post an answer"))
		return
	}

	var draft answerDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, err)
		return
	}

	answer, err := h.answers.Create(r.Context(), ident.UserID, draft.QuestionID, draft.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

// HandleUpdate serves PATCH /api/answers/{id}.
func (h *AnswerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to edit an answer"))
		return
	}

	var patch model.AnswerPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	answer, err := h.answers.Update(r.Context(), ident.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// HandleDelete serves DELETE /api/answers/{id}.
func (h *AnswerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to delete an answer"))
		return
	}
	if err := h.answers.Delete(r.Context(), ident.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMine serves GET /api/me/answers.
func (h *AnswerHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in first"))
		return
	}
	answers, err := h.answers.ListByUser(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// HandleListVotes serves GET /api/votes, the acting user's vote rows.
func (h *AnswerHandler) HandleListVotes(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in first"))
		return
	}
	votes, err := h.answers.ListVotes(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

// HandleUpsertVote serves PUT /api/votes. The vote row's identity is the
// composite (answer_id, user_id); a repeat PUT replaces the direction.
func (h *AnswerHandler) HandleUpsertVote(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to vote"))
		return
	}

	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AnswerID == "" {
		writeError(w, apperror.ValidationFailed("answer_id", "answer_id is required"))
		return
	}

	if err := h.answers.Vote(r.Context(), ident.UserID, req.AnswerID, model.VoteType(req.VoteType)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteVote serves DELETE /api/votes?answer_id=...
func (h *AnswerHandler) HandleDeleteVote(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("sign in to vote"))
		return
	}
	answerID := r.URL.Query().Get("answer_id")
	if answerID == "" {
		writeError(w, apperror.ValidationFailed("answer_id", "answer_id is required"))
		return
	}
	if err := h.answers.Unvote(r.Context(), ident.UserID, answerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
