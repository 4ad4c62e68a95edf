package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/store"
)

// mockQuestionStore is an in-memory stand-in for the store client.
type mockQuestionStore struct {
	rows    []model.Question
	listErr error
	nextID  string
	calls   int
}

func (m *mockQuestionStore) ListQuestions(_ context.Context, _ store.Order) ([]model.Question, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.Question, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *mockQuestionStore) CreateQuestion(_ context.Context, draft store.QuestionDraft) (*model.Question, error) {
	m.calls++
	id := m.nextID
	if id == "" {
		id = fmt.Sprintf("q%d", len(m.rows)+1)
	}
	q := model.Question{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		Tags:        draft.Tags,
		UserID:      "me",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.rows = append(m.rows, q)
	return &q, nil
}

func (m *mockQuestionStore) UpdateQuestion(_ context.Context, id string, patch model.QuestionPatch) (*model.Question, error) {
	m.calls++
	for i := range m.rows {
		if m.rows[i].ID == id {
			patch.Merge(&m.rows[i])
			q := m.rows[i]
			return &q, nil
		}
	}
	return nil, &store.StoreError{Code: store.CodeNotFound, Message: "question not found", Status: 404}
}

func (m *mockQuestionStore) DeleteQuestion(_ context.Context, id string) error {
	m.calls++
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return &store.StoreError{Code: store.CodeNotFound, Message: "question not found", Status: 404}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func me() model.UserIdentity {
	return model.UserIdentity{ID: "me", Email: "me@example.com"}
}

func loadedQuestionCache(t *testing.T, rows ...model.Question) (*QuestionCache, *mockQuestionStore) {
	t.Helper()
	m := &mockQuestionStore{rows: rows}
	c := NewQuestionCache(m, me(), quietLogger())
	if err := c.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return c, m
}

func TestLoadAllStateMachine(t *testing.T) {
	m := &mockQuestionStore{listErr: errors.New("store down")}
	c := NewQuestionCache(m, me(), quietLogger())

	if c.State() != Empty {
		t.Fatalf("initial state = %v, want empty", c.State())
	}

	err := c.LoadAll(context.Background())
	if !errors.Is(err, apperror.ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch", err)
	}
	if c.State() != Failed {
		t.Errorf("state after failure = %v, want failed", c.State())
	}
	if len(c.Questions()) != 0 {
		t.Error("a failed load must not leave a partial collection")
	}

	// Explicit retry is the only way out of Failed.
	m.listErr = nil
	m.rows = []model.Question{{ID: "q1", Title: "Why?"}}
	if err := c.LoadAll(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.State() != Ready {
		t.Errorf("state after retry = %v, want ready", c.State())
	}
}

func TestLoadAllReplacesWholesale(t *testing.T) {
	c, m := loadedQuestionCache(t, model.Question{ID: "q1", Title: "old"})

	m.rows = []model.Question{{ID: "q2", Title: "new"}}
	if err := c.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	qs := c.Questions()
	if len(qs) != 1 || qs[0].ID != "q2" {
		t.Errorf("collection = %+v, want only q2", qs)
	}
}

func TestApplyRemoteInsertIdempotent(t *testing.T) {
	c, _ := loadedQuestionCache(t)

	q := model.Question{ID: "q1", Title: "Why is the sky blue?", CreatedAt: time.Now()}
	c.ApplyRemoteInsert(q)
	once := c.Questions()

	c.ApplyRemoteInsert(q)
	twice := c.Questions()

	if len(once) != 1 || len(twice) != 1 {
		t.Fatalf("lengths = %d, %d; want 1, 1", len(once), len(twice))
	}
	if once[0].ID != twice[0].ID || once[0].Title != twice[0].Title {
		t.Error("applying the same insert twice changed the collection")
	}
}

func TestApplyRemoteInsertPrependsNewest(t *testing.T) {
	c, _ := loadedQuestionCache(t, model.Question{ID: "q1", Title: "older"})

	c.ApplyRemoteInsert(model.Question{ID: "q2", Title: "newer"})
	qs := c.Questions()
	if qs[0].ID != "q2" {
		t.Errorf("first element = %s, want the freshly inserted q2", qs[0].ID)
	}
}

func TestApplyRemoteInsertKeepsAuthorJoin(t *testing.T) {
	author := &model.Author{DisplayName: "asha"}
	c, _ := loadedQuestionCache(t, model.Question{ID: "q1", Title: "t", Author: author})

	// Feed rows never carry the join.
	c.ApplyRemoteInsert(model.Question{ID: "q1", Title: "edited"})
	q, _ := c.Get("q1")
	if q.Author == nil || q.Author.DisplayName != "asha" {
		t.Error("author join lost on feed echo")
	}
	if q.Title != "edited" {
		t.Errorf("Title = %q", q.Title)
	}
}

func TestApplyRemoteUpdateIdempotentAndScoped(t *testing.T) {
	c, _ := loadedQuestionCache(t, model.Question{ID: "q1", Title: "before", Description: "d"})

	title := "after"
	patch := model.QuestionPatch{ID: "q1", Title: &title}
	c.ApplyRemoteUpdate(patch)
	once := c.Questions()
	c.ApplyRemoteUpdate(patch)
	twice := c.Questions()

	if once[0].Title != "after" || twice[0].Title != "after" {
		t.Error("update not applied")
	}
	if once[0].Description != "d" {
		t.Error("fields absent from the patch must be retained")
	}

	// An id outside the scope is a no-op, not a panic.
	other := "elsewhere"
	c.ApplyRemoteUpdate(model.QuestionPatch{ID: "q99", Title: &other})
	if got := c.Questions(); len(got) != 1 || got[0].ID != "q1" {
		t.Error("out-of-scope update mutated the collection")
	}
}

func TestApplyRemoteDeleteIdempotentAndScoped(t *testing.T) {
	c, _ := loadedQuestionCache(t, model.Question{ID: "q1"}, model.Question{ID: "q2"})

	c.ApplyRemoteDelete("q1")
	c.ApplyRemoteDelete("q1") // duplicate delivery
	c.ApplyRemoteDelete("q7") // never in scope

	qs := c.Questions()
	if len(qs) != 1 || qs[0].ID != "q2" {
		t.Errorf("collection = %+v, want only q2", qs)
	}
}

func TestAppliesBeforeReadyAreNoOps(t *testing.T) {
	m := &mockQuestionStore{}
	c := NewQuestionCache(m, me(), quietLogger())

	c.ApplyRemoteInsert(model.Question{ID: "q1"})
	c.ApplyRemoteDelete("q1")
	if c.State() != Empty {
		t.Errorf("state = %v, want empty", c.State())
	}
	if len(c.Questions()) != 0 {
		t.Error("applies before load must not populate the collection")
	}
}

func TestSearchTextScenario(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, _ := loadedQuestionCache(t, model.Question{
		ID: "1", Title: "Why is the sky blue?", Tags: []string{"physics"}, CreatedAt: t0,
	})

	if got := c.Search(Query{Text: "sky"}); len(got) != 1 || got[0].ID != "1" {
		t.Errorf(`Search("sky") = %+v, want [id 1]`, got)
	}
	if got := c.Search(Query{Text: "ocean"}); len(got) != 0 {
		t.Errorf(`Search("ocean") = %+v, want []`, got)
	}
	// Case-insensitive, and description participates.
	if got := c.Search(Query{Text: "SKY"}); len(got) != 1 {
		t.Error("search must be case-insensitive")
	}
}

func TestSearchMatchesDescription(t *testing.T) {
	c, _ := loadedQuestionCache(t, model.Question{ID: "1", Title: "t", Description: "Rayleigh scattering"})
	if got := c.Search(Query{Text: "rayleigh"}); len(got) != 1 {
		t.Error("description substring should match")
	}
}

func TestTagFilterIsLooseSubstring(t *testing.T) {
	c, _ := loadedQuestionCache(t,
		model.Question{ID: "1", Tags: []string{"golang", "web"}},
		model.Question{ID: "2", Tags: []string{"rust"}},
	)

	got := c.Search(Query{Tags: []string{"go"}})
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf(`tag filter "go" = %+v, want [id 1] via substring match on "golang"`, got)
	}
	if got := c.Search(Query{Tags: []string{"zig", "rus"}}); len(got) != 1 || got[0].ID != "2" {
		t.Error("ANY query tag matching ANY entity tag should be enough")
	}
}

func TestSearchPurity(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, _ := loadedQuestionCache(t,
		model.Question{ID: "1", Title: "a", CreatedAt: t0},
		model.Question{ID: "2", Title: "b", CreatedAt: t0.Add(time.Hour)},
	)

	before := c.Questions()
	first := c.Search(Query{Order: store.OrderOldest})
	second := c.Search(Query{Order: store.OrderOldest})

	if len(first) != len(second) {
		t.Fatal("consecutive identical searches disagree")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatal("consecutive identical searches disagree")
		}
	}
	after := c.Questions()
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatal("Search mutated the authoritative collection")
		}
	}
}

func TestSearchSortOrders(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, _ := loadedQuestionCache(t,
		model.Question{ID: "old", CreatedAt: t0},
		model.Question{ID: "new", CreatedAt: t0.Add(time.Hour)},
	)

	if got := c.Search(Query{}); got[0].ID != "new" {
		t.Error("default order must be newest first")
	}
	if got := c.Search(Query{Order: store.OrderOldest}); got[0].ID != "old" {
		t.Error("oldest order must be ascending")
	}
}

func TestSubmitReconcilesWithReturnedRow(t *testing.T) {
	c, m := loadedQuestionCache(t)
	m.nextID = "42"

	q, err := c.Submit(context.Background(), "Test", "", "go, rust")
	if err != nil {
		t.Fatal(err)
	}
	if q.ID != "42" {
		t.Fatalf("id = %s", q.ID)
	}
	if len(q.Tags) != 2 || q.Tags[0] != "go" || q.Tags[1] != "rust" {
		t.Errorf("tags = %v", q.Tags)
	}

	// The author's own row echoed back by the feed must not duplicate.
	c.ApplyRemoteInsert(*q)
	count := 0
	for _, row := range c.Questions() {
		if row.ID == "42" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("id 42 appears %d times, want exactly once", count)
	}
}

func TestSubmitRequiresTitle(t *testing.T) {
	c, m := loadedQuestionCache(t)
	before := m.calls

	_, err := c.Submit(context.Background(), "   ", "", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if m.calls != before {
		t.Error("validation must run before any store call")
	}
}

func TestEditAndDeleteAreOwnerOnly(t *testing.T) {
	c, m := loadedQuestionCache(t, model.Question{ID: "q1", Title: "t", UserID: "someone-else"})
	before := m.calls

	if _, err := c.Edit(context.Background(), "q1", "new title", "", ""); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Edit err = %v, want ErrForbidden", err)
	}
	if err := c.Delete(context.Background(), "q1"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete err = %v, want ErrForbidden", err)
	}
	if m.calls != before {
		t.Error("ownership is checked before any store call")
	}
}

func TestDeleteAppliesLocally(t *testing.T) {
	c, _ := loadedQuestionCache(t, model.Question{ID: "q1", UserID: "me"})

	if err := c.Delete(context.Background(), "q1"); err != nil {
		t.Fatal(err)
	}
	if len(c.Questions()) != 0 {
		t.Error("deleted question still present")
	}
}
