package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// QuestionDraft is the client-authored part of a new question. The store
// assigns id, author and timestamps.
type QuestionDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
}

// ListQuestions fetches all questions with their author view attached,
// ordered by creation time.
func (c *Client) ListQuestions(ctx context.Context, order Order) ([]model.Question, error) {
	q := url.Values{"order": {string(order)}}
	var questions []model.Question
	if err := c.do(ctx, http.MethodGet, "/api/questions", q, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetQuestion fetches a single question with its author view.
func (c *Client) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	var question model.Question
	if err := c.do(ctx, http.MethodGet, "/api/questions/"+id, nil, nil, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// CreateQuestion submits a draft and returns the store's authoritative row.
// Callers reconcile with this row rather than re-querying.
func (c *Client) CreateQuestion(ctx context.Context, draft QuestionDraft) (*model.Question, error) {
	var question model.Question
	if err := c.do(ctx, http.MethodPost, "/api/questions", nil, draft, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// UpdateQuestion patches a question and returns the updated row.
func (c *Client) UpdateQuestion(ctx context.Context, id string, patch model.QuestionPatch) (*model.Question, error) {
	var question model.Question
	if err := c.do(ctx, http.MethodPatch, "/api/questions/"+id, nil, patch, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// DeleteQuestion removes a question. The store cascades deletion of its
// answers and their votes.
func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/questions/"+id, nil, nil, nil)
}

// MyQuestions fetches the acting user's questions, each with its answer count.
func (c *Client) MyQuestions(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if err := c.do(ctx, http.MethodGet, "/api/me/questions", nil, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
