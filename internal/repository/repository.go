// Package repository defines the storage interfaces the dev data store's
// service layer depends on. The sqlite subpackage implements them.
package repository

import (
	"context"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// ListOptions pages and orders a listing.
type ListOptions struct {
	Limit   int
	Offset  int
	Oldest  bool   // ascending by creation time instead of descending
	UserID  string // restrict to one author when set
}

// SignInToken is a pending magic-link token. Only the hash is stored.
type SignInToken struct {
	Email     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	GetQuestionByID(ctx context.Context, id string) (*model.Question, error)
	ListQuestions(ctx context.Context, opts ListOptions) ([]model.Question, error)
	UpdateQuestion(ctx context.Context, id string, patch model.QuestionPatch) (*model.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

type AnswerRepository interface {
	CreateAnswer(ctx context.Context, a *model.Answer) error
	GetAnswerByID(ctx context.Context, id string) (*model.Answer, error)
	ListAnswers(ctx context.Context, questionID string, opts ListOptions) ([]model.Answer, error)
	ListAnswersByUser(ctx context.Context, userID string) ([]model.Answer, error)
	UpdateAnswer(ctx context.Context, id string, patch model.AnswerPatch) (*model.Answer, error)
	DeleteAnswer(ctx context.Context, id string) error
}

type VoteRepository interface {
	// UpsertVote inserts or replaces the row for (answerID, userID).
	UpsertVote(ctx context.Context, v *model.Vote) error
	DeleteVote(ctx context.Context, answerID, userID string) error
	ListVotesByUser(ctx context.Context, userID string) ([]model.Vote, error)
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *model.UserProfile) error
	GetProfileByID(ctx context.Context, id string) (*model.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) (*model.UserProfile, error)
}

type TokenRepository interface {
	// SaveSignInToken replaces any pending token for the same email.
	SaveSignInToken(ctx context.Context, t *SignInToken) error
	GetSignInToken(ctx context.Context, email string) (*SignInToken, error)
	DeleteSignInToken(ctx context.Context, email string) error
}
