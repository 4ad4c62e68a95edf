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

// QuestionStore is the slice of the store client the question cache needs.
// *store.Client satisfies it; tests use an in-memory mock.
type QuestionStore interface {
	ListQuestions(ctx context.Context, order store.Order) ([]model.Question, error)
	CreateQuestion(ctx context.Context, draft store.QuestionDraft) (*model.Question, error)
	UpdateQuestion(ctx context.Context, id string, patch model.QuestionPatch) (*model.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

// QuestionCache owns the question list for the home scope. The collection is
// ordered newest-first; Search and Sort never touch it.
type QuestionCache struct {
	store  QuestionStore
	user   model.UserIdentity
	logger *slog.Logger

	state     State
	questions []model.Question
}

// NewQuestionCache creates an empty cache bound to the acting user.
func NewQuestionCache(qs QuestionStore, user model.UserIdentity, logger *slog.Logger) *QuestionCache {
	return &QuestionCache{store: qs, user: user, logger: logger}
}

// State reports the scope lifecycle state.
func (c *QuestionCache) State() State {
	return c.state
}

// LoadAll replaces the collection wholesale with the store's authoritative
// set. On failure the previous collection is discarded and the scope is
// Failed until an explicit retry; callers render an error state, never a
// partial result.
func (c *QuestionCache) LoadAll(ctx context.Context) error {
	c.state = Loading
	questions, err := c.store.ListQuestions(ctx, store.OrderNewest)
	if err != nil {
		c.logger.Error("loading questions failed", slog.String("error", err.Error()))
		c.state = Failed
		c.questions = nil
		return apperror.Fetch("questions")
	}
	c.questions = questions
	c.state = Ready
	return nil
}

// Questions returns a copy of the collection in authoritative order.
func (c *QuestionCache) Questions() []model.Question {
	out := make([]model.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Get returns a copy of one question by id.
func (c *QuestionCache) Get(id string) (model.Question, bool) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

// ApplyRemoteInsert merges an inserted row. A row whose id is already
// present (the author's own submission echoed back by the feed) is treated
// as an update, never a duplicate. New rows are prepended: newest first.
func (c *QuestionCache) ApplyRemoteInsert(q model.Question) {
	if c.state != Ready {
		return
	}
	for i := range c.questions {
		if c.questions[i].ID == q.ID {
			// Keep the author join if the incoming row lacks it.
			if q.Author == nil {
				q.Author = c.questions[i].Author
			}
			c.questions[i] = q
			return
		}
	}
	c.questions = append([]model.Question{q}, c.questions...)
}

// ApplyRemoteUpdate merges the fields present in the patch. An id outside
// the current scope is a no-op.
func (c *QuestionCache) ApplyRemoteUpdate(p model.QuestionPatch) {
	if c.state != Ready {
		return
	}
	for i := range c.questions {
		if c.questions[i].ID == p.ID {
			p.Merge(&c.questions[i])
			return
		}
	}
}

// ApplyRemoteDelete removes a row by id; absent ids are a no-op.
func (c *QuestionCache) ApplyRemoteDelete(id string) {
	if c.state != Ready {
		return
	}
	for i := range c.questions {
		if c.questions[i].ID == id {
			c.questions = append(c.questions[:i], c.questions[i+1:]...)
			return
		}
	}
}

// Submit posts a new question and reconciles the collection with the row
// the store returns. The returned row is authoritative; a feed insert for
// the same id arriving later is absorbed by the idempotent merge.
func (c *QuestionCache) Submit(ctx context.Context, title, description, tagsInput string) (*model.Question, error) {
	if c.state != Ready {
		return nil, ErrNotReady
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "please enter a question title")
	}

	draft := store.QuestionDraft{
		Title:       title,
		Description: strings.TrimSpace(description),
		Tags:        model.ParseTags(tagsInput),
	}
	question, err := c.store.CreateQuestion(ctx, draft)
	if err != nil {
		c.logger.Error("posting question failed", slog.String("error", err.Error()))
		return nil, apperror.Mutation("post question")
	}

	c.ApplyRemoteInsert(*question)
	c.logger.Info("question posted", slog.String("id", question.ID))
	return question, nil
}

// Edit updates an owned question. Ownership is checked before any store
// call; on store failure local state is left at its pre-mutation value.
func (c *QuestionCache) Edit(ctx context.Context, id, title, description, tagsInput string) (*model.Question, error) {
	if c.state != Ready {
		return nil, ErrNotReady
	}
	current, ok := c.Get(id)
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	if current.UserID != c.user.ID {
		return nil, apperror.Forbidden("you can only edit your own question")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "please enter a question title")
	}

	description = strings.TrimSpace(description)
	tags := model.ParseTags(tagsInput)
	if tags == nil {
		tags = []string{}
	}
	patch := model.QuestionPatch{
		ID:          id,
		Title:       &title,
		Description: &description,
		Tags:        &tags,
	}
	question, err := c.store.UpdateQuestion(ctx, id, patch)
	if err != nil {
		c.logger.Error("updating question failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Mutation("update question")
	}

	c.ApplyRemoteInsert(*question)
	return question, nil
}

// Delete removes an owned question. The store cascades answers and votes.
func (c *QuestionCache) Delete(ctx context.Context, id string) error {
	if c.state != Ready {
		return ErrNotReady
	}
	current, ok := c.Get(id)
	if !ok {
		return apperror.NotFound("question", id)
	}
	if current.UserID != c.user.ID {
		return apperror.Forbidden("you can only delete your own question")
	}

	if err := c.store.DeleteQuestion(ctx, id); err != nil {
		c.logger.Error("deleting question failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return apperror.Mutation("delete question")
	}

	c.ApplyRemoteDelete(id)
	return nil
}

// Query is a pure projection over the collection: text search, loose tag
// matching and a sort order.
type Query struct {
	Text  string   // case-insensitive substring of title or description
	Tags  []string // match if ANY query tag is a substring of ANY entity tag
	Order store.Order
}

// Search filters and sorts a copy of the collection. Consecutive calls with
// equal arguments on an unmutated cache return equal results.
func (c *QuestionCache) Search(q Query) []model.Question {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	var out []model.Question
	for _, question := range c.questions {
		if !matchesText(question, text) {
			continue
		}
		if !matchesTags(question.Tags, q.Tags) {
			continue
		}
		out = append(out, question)
	}

	order := q.Order
	if order == "" {
		order = store.OrderNewest
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == store.OrderOldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matchesText(q model.Question, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(q.Title), text) ||
		strings.Contains(strings.ToLower(q.Description), text)
}

// matchesTags is deliberately loose: "go" matches a question tagged
// "golang".
func matchesTags(entityTags, queryTags []string) bool {
	if len(queryTags) == 0 {
		return true
	}
	for _, qt := range queryTags {
		qt = strings.ToLower(qt)
		for _, et := range entityTags {
			if strings.Contains(strings.ToLower(et), qt) {
				return true
			}
		}
	}
	return false
}
