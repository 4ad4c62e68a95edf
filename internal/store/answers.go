package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// AnswerDraft is the client-authored part of a new answer.
type AnswerDraft struct {
	QuestionID string `json:"question_id"`
	Content    string `json:"content"`
}

// ListAnswers fetches the answers for one question with author views and
// server-computed vote totals.
func (c *Client) ListAnswers(ctx context.Context, questionID string, order Order) ([]model.Answer, error) {
	q := url.Values{
		"question_id": {questionID},
		"order":       {string(order)},
	}
	var answers []model.Answer
	if err := c.do(ctx, http.MethodGet, "/api/answers", q, nil, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// GetAnswer fetches a single answer. The vote total on the returned row is
// the only authoritative total; the client never sums votes itself.
func (c *Client) GetAnswer(ctx context.Context, id string) (*model.Answer, error) {
	var answer model.Answer
	if err := c.do(ctx, http.MethodGet, "/api/answers/"+id, nil, nil, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// CreateAnswer submits a draft and returns the authoritative row.
func (c *Client) CreateAnswer(ctx context.Context, draft AnswerDraft) (*model.Answer, error) {
	var answer model.Answer
	if err := c.do(ctx, http.MethodPost, "/api/answers", nil, draft, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// UpdateAnswer patches an answer and returns the updated row.
func (c *Client) UpdateAnswer(ctx context.Context, id string, patch model.AnswerPatch) (*model.Answer, error) {
	var answer model.Answer
	if err := c.do(ctx, http.MethodPatch, "/api/answers/"+id, nil, patch, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// DeleteAnswer removes an answer.
func (c *Client) DeleteAnswer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/answers/"+id, nil, nil, nil)
}

// MyAnswers fetches the acting user's answers with their question titles.
func (c *Client) MyAnswers(ctx context.Context) ([]model.Answer, error) {
	var answers []model.Answer
	if err := c.do(ctx, http.MethodGet, "/api/me/answers", nil, nil, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}
