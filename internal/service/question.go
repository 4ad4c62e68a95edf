// Package service holds the dev data store's business rules between the
// HTTP handlers and the repositories. Ownership checks live here, so the
// rules hold no matter which transport calls in.
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

const (
	maxTitleLen   = 200
	maxContentLen = 10000
)

// Broadcaster publishes row changes to feed subscribers. *realtime.Hub
// satisfies it; tests use a recorder.
type Broadcaster interface {
	Broadcast(topic string, kind realtime.Kind, newRow, oldRow any)
}

// NopBroadcaster drops broadcasts; useful in tests that don't watch the feed.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, realtime.Kind, any, any) {}

// QuestionService implements question use cases and publishes every
// mutation to the change feed.
type QuestionService struct {
	repo   repository.QuestionRepository
	feed   Broadcaster
	logger *slog.Logger
}

// NewQuestionService wires the service.
func NewQuestionService(repo repository.QuestionRepository, feed Broadcaster, logger *slog.Logger) *QuestionService {
	return &QuestionService{repo: repo, feed: feed, logger: logger}
}

// Create validates and stores a new question, then broadcasts the insert.
func (s *QuestionService) Create(ctx context.Context, userID, title, description string, tags []string) (*model.Question, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > maxTitleLen {
		return nil, apperror.ValidationFailed("title", "title is too long")
	}

	q := &model.Question{
		ID:          xid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Tags:        tags,
		UserID:      userID,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}

	// Re-read for the author join before handing the row out.
	created, err := s.repo.GetQuestionByID(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	s.feed.Broadcast("questions", realtime.KindInsert, created, nil)
	s.logger.Info("question created",
		slog.String("id", created.ID),
		slog.String("user_id", userID),
	)
	return created, nil
}

// Get retrieves one question.
func (s *QuestionService) Get(ctx context.Context, id string) (*model.Question, error) {
	return s.repo.GetQuestionByID(ctx, id)
}

// List pages through questions.
func (s *QuestionService) List(ctx context.Context, opts repository.ListOptions) ([]model.Question, error) {
	return s.repo.ListQuestions(ctx, opts)
}

// ListByUser returns one author's questions.
func (s *QuestionService) ListByUser(ctx context.Context, userID string) ([]model.Question, error) {
	return s.repo.ListQuestions(ctx, repository.ListOptions{UserID: userID})
}

// Update applies a patch to an owned question and broadcasts the update.
func (s *QuestionService) Update(ctx context.Context, userID, id string, patch model.QuestionPatch) (*model.Question, error) {
	current, err := s.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, apperror.Forbidden("you can only edit your own question")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
		if len(title) > maxTitleLen {
			return nil, apperror.ValidationFailed("title", "title is too long")
		}
		patch.Title = &title
	}

	updated, err := s.repo.UpdateQuestion(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.feed.Broadcast("questions", realtime.KindUpdate, updated, current)
	return updated, nil
}

// Delete removes an owned question and broadcasts the delete. Answers and
// votes cascade in storage; the feed only announces the question row, and
// detail pages react through their own scoped subscriptions.
func (s *QuestionService) Delete(ctx context.Context, userID, id string) error {
	current, err := s.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return err
	}
	if current.UserID != userID {
		return apperror.Forbidden("you can only delete your own question")
	}

	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.feed.Broadcast("questions", realtime.KindDelete, nil, current)
	s.logger.Info("question deleted",
		slog.String("id", id),
		slog.String("user_id", userID),
	)
	return nil
}
