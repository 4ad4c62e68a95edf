package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/realtime"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
)

// AnswerService implements answer and vote use cases. Vote totals are
// aggregated in storage; every vote change re-reads the answer and
// broadcasts it so watching clients converge on the same total.
type AnswerService struct {
	answers repository.AnswerRepository
	votes   repository.VoteRepository
	feed    Broadcaster
	logger  *slog.Logger
}

// NewAnswerService wires the service.
func NewAnswerService(answers repository.AnswerRepository, votes repository.VoteRepository, feed Broadcaster, logger *slog.Logger) *AnswerService {
	return &AnswerService{answers: answers, votes: votes, feed: feed, logger: logger}
}

// Create validates and stores a new answer, then broadcasts the insert.
func (s *AnswerService) Create(ctx context.Context, userID, questionID, content string) (*model.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > maxContentLen {
		return nil, apperror.ValidationFailed("content", "content is too long")
	}
	if questionID == "" {
		return nil, apperror.ValidationFailed("question_id", "question_id is required")
	}

	a := &model.Answer{
		ID:         xid.New().String(),
		QuestionID: questionID,
		Content:    content,
		UserID:     userID,
	}
	if err := s.answers.CreateAnswer(ctx, a); err != nil {
		return nil, err
	}

	created, err := s.answers.GetAnswerByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	s.feed.Broadcast("answers", realtime.KindInsert, created, nil)
	s.logger.Info("answer created",
		slog.String("id", created.ID),
		slog.String("question_id", questionID),
		slog.String("user_id", userID),
	)
	return created, nil
}

// Get retrieves one answer.
func (s *AnswerService) Get(ctx context.Context, id string) (*model.Answer, error) {
	return s.answers.GetAnswerByID(ctx, id)
}

// List returns a question's answers.
func (s *AnswerService) List(ctx context.Context, questionID string, opts repository.ListOptions) ([]model.Answer, error) {
	return s.answers.ListAnswers(ctx, questionID, opts)
}

// ListByUser returns one author's answers across questions.
func (s *AnswerService) ListByUser(ctx context.Context, userID string) ([]model.Answer, error) {
	return s.answers.ListAnswersByUser(ctx, userID)
}

// Update applies a patch to an owned answer and broadcasts the update.
func (s *AnswerService) Update(ctx context.Context, userID, id string, patch model.AnswerPatch) (*model.Answer, error) {
	current, err := s.answers.GetAnswerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, apperror.Forbidden("you can only edit your own answer")
	}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, apperror.ValidationFailed("content", "content is required")
		}
		patch.Content = &content
	}
	// Votes are never writable through a patch.
	patch.Votes = nil

	updated, err := s.answers.UpdateAnswer(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.feed.Broadcast("answers", realtime.KindUpdate, updated, current)
	return updated, nil
}

// Delete removes an owned answer and broadcasts the delete.
func (s *AnswerService) Delete(ctx context.Context, userID, id string) error {
	current, err := s.answers.GetAnswerByID(ctx, id)
	if err != nil {
		return err
	}
	if current.UserID != userID {
		return apperror.Forbidden("you can only delete your own answer")
	}

	if err := s.answers.DeleteAnswer(ctx, id); err != nil {
		return err
	}
	s.feed.Broadcast("answers", realtime.KindDelete, nil, current)
	return nil
}

// Vote upserts the caller's vote on an answer. Self-votes are rejected
// here as well as in the client, so no transport can sneak one in. The
// fresh total goes out as an answer update.
func (s *AnswerService) Vote(ctx context.Context, userID, answerID string, t model.VoteType) error {
	if !t.Valid() {
		return apperror.ValidationFailed("vote_type", "vote_type must be up or down")
	}
	answer, err := s.answers.GetAnswerByID(ctx, answerID)
	if err != nil {
		return err
	}
	if answer.UserID == userID {
		return apperror.Forbidden("you cannot vote on your own answer")
	}

	if err := s.votes.UpsertVote(ctx, &model.Vote{
		AnswerID: answerID,
		UserID:   userID,
		Type:     t,
	}); err != nil {
		return err
	}
	s.broadcastTotal(ctx, answer)
	return nil
}

// Unvote removes the caller's vote on an answer.
func (s *AnswerService) Unvote(ctx context.Context, userID, answerID string) error {
	answer, err := s.answers.GetAnswerByID(ctx, answerID)
	if err != nil {
		return err
	}
	if err := s.votes.DeleteVote(ctx, answerID, userID); err != nil {
		return err
	}
	s.broadcastTotal(ctx, answer)
	return nil
}

// ListVotes returns the caller's vote rows.
func (s *AnswerService) ListVotes(ctx context.Context, userID string) ([]model.Vote, error) {
	return s.votes.ListVotesByUser(ctx, userID)
}

func (s *AnswerService) broadcastTotal(ctx context.Context, before *model.Answer) {
	fresh, err := s.answers.GetAnswerByID(ctx, before.ID)
	if err != nil {
		s.logger.Warn("re-reading answer after vote failed",
			slog.String("id", before.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.feed.Broadcast("answers", realtime.KindUpdate, fresh, before)
}
