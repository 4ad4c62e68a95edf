package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// ListVotes fetches all of the acting user's votes.
func (c *Client) ListVotes(ctx context.Context) ([]model.Vote, error) {
	var votes []model.Vote
	if err := c.do(ctx, http.MethodGet, "/api/votes", nil, nil, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// UpsertVote inserts or replaces the acting user's vote on an answer. The
// conflict target is the composite key (answer_id, user_id).
func (c *Client) UpsertVote(ctx context.Context, answerID string, t model.VoteType) error {
	body := map[string]string{
		"answer_id": answerID,
		"vote_type": string(t),
	}
	return c.do(ctx, http.MethodPut, "/api/votes", nil, body, nil)
}

// DeleteVote removes the acting user's vote on an answer, if any.
func (c *Client) DeleteVote(ctx context.Context, answerID string) error {
	q := url.Values{"answer_id": {answerID}}
	return c.do(ctx, http.MethodDelete, "/api/votes", q, nil, nil)
}
