package cache

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/store"
)

// AnswerStore is the slice of the store client the answer cache needs.
type AnswerStore interface {
	ListAnswers(ctx context.Context, questionID string, order store.Order) ([]model.Answer, error)
	GetAnswer(ctx context.Context, id string) (*model.Answer, error)
	CreateAnswer(ctx context.Context, draft store.AnswerDraft) (*model.Answer, error)
	UpdateAnswer(ctx context.Context, id string, patch model.AnswerPatch) (*model.Answer, error)
	DeleteAnswer(ctx context.Context, id string) error
}

// VoteStore covers the acting user's vote rows.
type VoteStore interface {
	ListVotes(ctx context.Context) ([]model.Vote, error)
	UpsertVote(ctx context.Context, answerID string, t model.VoteType) error
	DeleteVote(ctx context.Context, answerID string) error
}

// SortMode orders the answer projection.
type SortMode string

const (
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
	SortVotes  SortMode = "votes"
)

// AnswerCache owns one question's answers plus the acting user's vote map
// (answer id → direction). Vote totals on answers are server-computed; the
// cache refreshes them by re-fetching single rows, never by summing locally,
// so concurrent voters cannot drift it.
type AnswerCache struct {
	answers AnswerStore
	votes   VoteStore
	logger  *slog.Logger

	questionID string
	user       model.UserIdentity

	state        State
	list         []model.Answer
	voteByAnswer map[string]model.VoteType
}

// NewAnswerCache creates an empty cache for one question's scope.
func NewAnswerCache(as AnswerStore, vs VoteStore, questionID string, user model.UserIdentity, logger *slog.Logger) *AnswerCache {
	return &AnswerCache{
		answers:      as,
		votes:        vs,
		questionID:   questionID,
		user:         user,
		logger:       logger,
		voteByAnswer: make(map[string]model.VoteType),
	}
}

// State reports the scope lifecycle state.
func (c *AnswerCache) State() State {
	return c.state
}

// QuestionID is the scope this cache is bound to.
func (c *AnswerCache) QuestionID() string {
	return c.questionID
}

// LoadAll replaces the answer collection wholesale.
func (c *AnswerCache) LoadAll(ctx context.Context) error {
	c.state = Loading
	answers, err := c.answers.ListAnswers(ctx, c.questionID, store.OrderNewest)
	if err != nil {
		c.logger.Error("loading answers failed",
			slog.String("question_id", c.questionID),
			slog.String("error", err.Error()),
		)
		c.state = Failed
		c.list = nil
		return apperror.Fetch("answers")
	}
	c.list = answers
	c.state = Ready
	return nil
}

// LoadVotes fills the acting user's vote map. Failures leave the map empty;
// voting still works, the toggle state is just unknown.
func (c *AnswerCache) LoadVotes(ctx context.Context) error {
	votes, err := c.votes.ListVotes(ctx)
	if err != nil {
		c.logger.Warn("loading votes failed", slog.String("error", err.Error()))
		return apperror.Fetch("votes")
	}
	c.voteByAnswer = make(map[string]model.VoteType, len(votes))
	for _, v := range votes {
		c.voteByAnswer[v.AnswerID] = v.Type
	}
	return nil
}

// Answers returns a sorted copy of the collection.
func (c *AnswerCache) Answers(mode SortMode) []model.Answer {
	out := make([]model.Answer, len(c.list))
	copy(out, c.list)

	switch mode {
	case SortVotes:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// Get returns a copy of one answer by id.
func (c *AnswerCache) Get(id string) (model.Answer, bool) {
	for _, a := range c.list {
		if a.ID == id {
			return a, true
		}
	}
	return model.Answer{}, false
}

// VoteFor reports the acting user's current vote on an answer, if any.
func (c *AnswerCache) VoteFor(answerID string) (model.VoteType, bool) {
	t, ok := c.voteByAnswer[answerID]
	return t, ok
}

// ApplyRemoteInsert merges an inserted row; an already-present id becomes an
// update, never a duplicate. Rows for other questions are ignored.
func (c *AnswerCache) ApplyRemoteInsert(a model.Answer) {
	if c.state != Ready {
		return
	}
	if a.QuestionID != "" && a.QuestionID != c.questionID {
		return
	}
	for i := range c.list {
		if c.list[i].ID == a.ID {
			if a.Author == nil {
				a.Author = c.list[i].Author
			}
			c.list[i] = a
			return
		}
	}
	c.list = append(c.list, a)
}

// ApplyRemoteUpdate merges the fields present in the patch; absent ids are a
// no-op.
func (c *AnswerCache) ApplyRemoteUpdate(p model.AnswerPatch) {
	if c.state != Ready {
		return
	}
	for i := range c.list {
		if c.list[i].ID == p.ID {
			p.Merge(&c.list[i])
			return
		}
	}
}

// ApplyRemoteDelete removes a row by id; absent ids are a no-op. Any stale
// vote-map entry for the row goes with it.
func (c *AnswerCache) ApplyRemoteDelete(id string) {
	if c.state != Ready {
		return
	}
	delete(c.voteByAnswer, id)
	for i := range c.list {
		if c.list[i].ID == id {
			c.list = append(c.list[:i], c.list[i+1:]...)
			return
		}
	}
}

// Submit posts a new answer and reconciles with the returned row.
func (c *AnswerCache) Submit(ctx context.Context, content string) (*model.Answer, error) {
	if c.state != Ready {
		return nil, ErrNotReady
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "please enter your answer")
	}

	answer, err := c.answers.CreateAnswer(ctx, store.AnswerDraft{
		QuestionID: c.questionID,
		Content:    content,
	})
	if err != nil {
		c.logger.Error("posting answer failed", slog.String("error", err.Error()))
		return nil, apperror.Mutation("post answer")
	}

	c.ApplyRemoteInsert(*answer)
	c.logger.Info("answer posted", slog.String("id", answer.ID))
	return answer, nil
}

// Edit updates an owned answer.
func (c *AnswerCache) Edit(ctx context.Context, id, content string) (*model.Answer, error) {
	if c.state != Ready {
		return nil, ErrNotReady
	}
	current, ok := c.Get(id)
	if !ok {
		return nil, apperror.NotFound("answer", id)
	}
	if current.UserID != c.user.ID {
		return nil, apperror.Forbidden("you can only edit your own answer")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "please enter your answer")
	}

	answer, err := c.answers.UpdateAnswer(ctx, id, model.AnswerPatch{ID: id, Content: &content})
	if err != nil {
		c.logger.Error("updating answer failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Mutation("update answer")
	}

	c.ApplyRemoteInsert(*answer)
	return answer, nil
}

// Delete removes an owned answer.
func (c *AnswerCache) Delete(ctx context.Context, id string) error {
	if c.state != Ready {
		return ErrNotReady
	}
	current, ok := c.Get(id)
	if !ok {
		return apperror.NotFound("answer", id)
	}
	if current.UserID != c.user.ID {
		return apperror.Forbidden("you can only delete your own answer")
	}

	if err := c.answers.DeleteAnswer(ctx, id); err != nil {
		c.logger.Error("deleting answer failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return apperror.Mutation("delete answer")
	}

	c.ApplyRemoteDelete(id)
	return nil
}

// RecordVote applies the toggle protocol for the acting user on one answer:
// repeating the current direction removes the vote, anything else upserts on
// the composite key (answer_id, user_id). The vote map is mutated only after
// the store confirms, so a failed call retains no local trace. Self-votes
// are rejected before any store call.
func (c *AnswerCache) RecordVote(ctx context.Context, answerID string, t model.VoteType) error {
	if c.state != Ready {
		return ErrNotReady
	}
	if !t.Valid() {
		return apperror.ValidationFailed("vote_type", "unknown vote direction")
	}
	answer, ok := c.Get(answerID)
	if !ok {
		// The answer left the scope (deleted, possibly mid-flight).
		return apperror.VoteFailed()
	}
	if answer.UserID == c.user.ID {
		return apperror.SelfVote()
	}

	if existing, has := c.voteByAnswer[answerID]; has && existing == t {
		if err := c.votes.DeleteVote(ctx, answerID); err != nil {
			c.logger.Error("removing vote failed",
				slog.String("answer_id", answerID),
				slog.String("error", err.Error()),
			)
			return apperror.VoteFailed()
		}
		delete(c.voteByAnswer, answerID)
	} else {
		if err := c.votes.UpsertVote(ctx, answerID, t); err != nil {
			c.logger.Error("recording vote failed",
				slog.String("answer_id", answerID),
				slog.String("error", err.Error()),
			)
			return apperror.VoteFailed()
		}
		c.voteByAnswer[answerID] = t
	}

	// The server owns the aggregated total; re-fetch rather than compute.
	// The vote itself is already durable, so a refresh failure only leaves
	// the displayed total stale until the next feed event.
	if err := c.RefreshAnswer(ctx, answerID); err != nil {
		c.logger.Warn("refreshing vote total failed",
			slog.String("answer_id", answerID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// RefreshAnswer re-fetches one row and merges it. A not-found response means
// the row was deleted remotely and is removed locally.
func (c *AnswerCache) RefreshAnswer(ctx context.Context, id string) error {
	if c.state != Ready {
		return ErrNotReady
	}
	answer, err := c.answers.GetAnswer(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			c.ApplyRemoteDelete(id)
			return nil
		}
		return err
	}
	c.ApplyRemoteInsert(*answer)
	return nil
}
