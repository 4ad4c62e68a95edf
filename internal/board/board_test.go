package board

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeyaram1023/doubt-wala/internal/cache"
	"github.com/jeyaram1023/doubt-wala/internal/feed"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/store"
	"github.com/jeyaram1023/doubt-wala/internal/view"
)

type fakeSource struct {
	ch     chan feed.Event
	closed chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan feed.Event, 16), closed: make(chan struct{})}
}

func (s *fakeSource) Events() <-chan feed.Event { return s.ch }

func (s *fakeSource) Close() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

func (s *fakeSource) push(ev feed.Event) { s.ch <- ev }

// fakeSubscriber hands out sources keyed by topic|filter.
type fakeSubscriber struct {
	sources map[string]*fakeSource
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{sources: make(map[string]*fakeSource)}
}

func (f *fakeSubscriber) Subscribe(topic, filter string) (EventSource, error) {
	s := newFakeSource()
	f.sources[topic+"|"+filter] = s
	return s, nil
}

type mockQStore struct {
	rows []model.Question
}

func (m *mockQStore) ListQuestions(_ context.Context, _ store.Order) ([]model.Question, error) {
	out := make([]model.Question, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *mockQStore) CreateQuestion(_ context.Context, draft store.QuestionDraft) (*model.Question, error) {
	q := model.Question{ID: "q42", Title: draft.Title, Tags: draft.Tags, UserID: "me", CreatedAt: time.Now()}
	m.rows = append(m.rows, q)
	return &q, nil
}

func (m *mockQStore) UpdateQuestion(_ context.Context, id string, patch model.QuestionPatch) (*model.Question, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			patch.Merge(&m.rows[i])
			q := m.rows[i]
			return &q, nil
		}
	}
	return nil, &store.StoreError{Code: store.CodeNotFound, Status: 404}
}

func (m *mockQStore) DeleteQuestion(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return &store.StoreError{Code: store.CodeNotFound, Status: 404}
}

type mockAStore struct {
	rows      []model.Answer
	votes     map[string]model.VoteType
	voteCalls int
}

func newMockAStore(rows ...model.Answer) *mockAStore {
	return &mockAStore{rows: rows, votes: make(map[string]model.VoteType)}
}

func (m *mockAStore) ListAnswers(_ context.Context, questionID string, _ store.Order) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range m.rows {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAStore) GetAnswer(_ context.Context, id string) (*model.Answer, error) {
	for _, a := range m.rows {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, &store.StoreError{Code: store.CodeNotFound, Status: 404}
}

func (m *mockAStore) CreateAnswer(_ context.Context, draft store.AnswerDraft) (*model.Answer, error) {
	a := model.Answer{ID: "a42", QuestionID: draft.QuestionID, Content: draft.Content, UserID: "me", CreatedAt: time.Now()}
	m.rows = append(m.rows, a)
	return &a, nil
}

func (m *mockAStore) UpdateAnswer(_ context.Context, id string, patch model.AnswerPatch) (*model.Answer, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			patch.Merge(&m.rows[i])
			a := m.rows[i]
			return &a, nil
		}
	}
	return nil, &store.StoreError{Code: store.CodeNotFound, Status: 404}
}

func (m *mockAStore) DeleteAnswer(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return &store.StoreError{Code: store.CodeNotFound, Status: 404}
}

func (m *mockAStore) ListVotes(_ context.Context) ([]model.Vote, error) {
	var out []model.Vote
	for id, t := range m.votes {
		out = append(out, model.Vote{AnswerID: id, UserID: "me", Type: t})
	}
	return out, nil
}

func (m *mockAStore) UpsertVote(_ context.Context, answerID string, t model.VoteType) error {
	m.voteCalls++
	m.votes[answerID] = t
	return nil
}

func (m *mockAStore) DeleteVote(_ context.Context, answerID string) error {
	m.voteCalls++
	delete(m.votes, answerID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func startListPage(t *testing.T, qs *mockQStore) (*ListPage, *fakeSubscriber, *view.Notifier) {
	t.Helper()
	subs := newFakeSubscriber()
	notifier := view.NewNotifier()
	user := model.UserIdentity{ID: "me", Email: "me@example.com"}
	qc := cache.NewQuestionCache(qs, user, testLogger())
	page := NewListPage(qc, subs, notifier, user, testLogger())
	require.NoError(t, page.Start(context.Background()))
	t.Cleanup(page.Close)
	return page, subs, notifier
}

func TestListPageAppliesFeedInsert(t *testing.T) {
	page, subs, notifier := startListPage(t, &mockQStore{})
	ctx := context.Background()

	src := subs.sources[TopicQuestions+"|"]
	require.NotNil(t, src)
	src.push(feed.Event{
		Topic: TopicQuestions,
		Kind:  feed.KindInsert,
		New:   mustJSON(t, model.Question{ID: "q1", Title: "Why?", UserID: "someone-else"}),
	})

	require.Eventually(t, func() bool {
		return len(page.Questions(ctx, cache.Query{})) == 1
	}, time.Second, 5*time.Millisecond)

	// Someone else's question surfaces a notice.
	notice, ok := notifier.Active(time.Now())
	require.True(t, ok)
	require.Equal(t, "new question posted", notice.Message)
}

func TestListPageOwnInsertEchoIsQuiet(t *testing.T) {
	page, subs, notifier := startListPage(t, &mockQStore{})
	ctx := context.Background()

	q, err := page.Submit(ctx, "Mine", "", "go")
	require.NoError(t, err)

	src := subs.sources[TopicQuestions+"|"]
	src.push(feed.Event{Topic: TopicQuestions, Kind: feed.KindInsert, New: mustJSON(t, *q)})

	require.Eventually(t, func() bool {
		qs := page.Questions(ctx, cache.Query{})
		count := 0
		for _, row := range qs {
			if row.ID == q.ID {
				count++
			}
		}
		return count == 1
	}, time.Second, 5*time.Millisecond)

	if _, ok := notifier.Active(time.Now()); ok {
		t.Error("own echo must not raise a notice")
	}
}

func TestListPageFeedUpdateKeepsAbsentFields(t *testing.T) {
	qs := &mockQStore{rows: []model.Question{{
		ID: "q1", Title: "before", Description: "keep me",
		Author: &model.Author{DisplayName: "asha"},
	}}}
	page, subs, _ := startListPage(t, qs)
	ctx := context.Background()

	src := subs.sources[TopicQuestions+"|"]
	src.push(feed.Event{
		Topic: TopicQuestions,
		Kind:  feed.KindUpdate,
		New:   json.RawMessage(`{"id":"q1","title":"after"}`),
	})

	require.Eventually(t, func() bool {
		rows := page.Questions(ctx, cache.Query{})
		return len(rows) == 1 && rows[0].Title == "after"
	}, time.Second, 5*time.Millisecond)

	rows := page.Questions(ctx, cache.Query{})
	require.Equal(t, "keep me", rows[0].Description)
	require.NotNil(t, rows[0].Author)
}

func TestListPageFeedDelete(t *testing.T) {
	qs := &mockQStore{rows: []model.Question{{ID: "q1"}}}
	page, subs, _ := startListPage(t, qs)
	ctx := context.Background()

	src := subs.sources[TopicQuestions+"|"]
	src.push(feed.Event{
		Topic: TopicQuestions,
		Kind:  feed.KindDelete,
		Old:   json.RawMessage(`{"id":"q1"}`),
	})

	require.Eventually(t, func() bool {
		return len(page.Questions(ctx, cache.Query{})) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestListPageReloadsOnReconnect(t *testing.T) {
	qs := &mockQStore{}
	page, subs, _ := startListPage(t, qs)
	ctx := context.Background()

	// A row appeared while the connection was down; the reconnect event
	// triggers a reload that picks it up.
	qs.rows = append(qs.rows, model.Question{ID: "q-missed", Title: "missed"})
	src := subs.sources[TopicQuestions+"|"]
	src.push(feed.Event{Topic: TopicQuestions, Kind: feed.KindConnected})

	require.Eventually(t, func() bool {
		return len(page.Questions(ctx, cache.Query{})) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestListPageClosedDropsCommands(t *testing.T) {
	page, _, _ := startListPage(t, &mockQStore{})
	page.Close()
	page.Close() // idempotent

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := page.Submit(ctx, "too late", "", "")
	require.Error(t, err)
}

func startQuestionPage(t *testing.T, as *mockAStore) (*QuestionPage, *fakeSubscriber, *view.Notifier) {
	t.Helper()
	subs := newFakeSubscriber()
	notifier := view.NewNotifier()
	user := model.UserIdentity{ID: "me", Email: "me@example.com"}
	ac := cache.NewAnswerCache(as, as, "q1", user, testLogger())
	q := model.Question{ID: "q1", Title: "Why is the sky blue?"}
	page := NewQuestionPage(q, ac, subs, notifier, user, testLogger())
	require.NoError(t, page.Start(context.Background()))
	t.Cleanup(page.Close)
	return page, subs, notifier
}

func TestQuestionPageScopedSubscriptions(t *testing.T) {
	_, subs, _ := startQuestionPage(t, newMockAStore())

	require.Contains(t, subs.sources, TopicAnswers+"|question_id=eq.q1")
	require.Contains(t, subs.sources, TopicQuestions+"|id=eq.q1")
}

func TestQuestionPageIgnoresOtherScopes(t *testing.T) {
	page, subs, _ := startQuestionPage(t, newMockAStore())
	ctx := context.Background()

	src := subs.sources[TopicAnswers+"|question_id=eq.q1"]
	src.push(feed.Event{
		Topic: TopicAnswers,
		Kind:  feed.KindInsert,
		New:   mustJSON(t, model.Answer{ID: "a1", QuestionID: "q-other", UserID: "u2"}),
	})
	src.push(feed.Event{
		Topic: TopicAnswers,
		Kind:  feed.KindInsert,
		New:   mustJSON(t, model.Answer{ID: "a2", QuestionID: "q1", UserID: "u2"}),
	})

	require.Eventually(t, func() bool {
		rows, _ := page.Answers(ctx, cache.SortNewest)
		return len(rows) == 1 && rows[0].ID == "a2"
	}, time.Second, 5*time.Millisecond)
}

func TestQuestionPageVoteDuringRemoteDelete(t *testing.T) {
	as := newMockAStore(model.Answer{ID: "a7", QuestionID: "q1", UserID: "someone-else"})
	page, subs, notifier := startQuestionPage(t, as)
	ctx := context.Background()

	// The delete lands first; the user's click arrives after.
	src := subs.sources[TopicAnswers+"|question_id=eq.q1"]
	src.push(feed.Event{
		Topic: TopicAnswers,
		Kind:  feed.KindDelete,
		Old:   json.RawMessage(`{"id":"a7"}`),
	})
	require.Eventually(t, func() bool {
		rows, _ := page.Answers(ctx, cache.SortNewest)
		return len(rows) == 0
	}, time.Second, 5*time.Millisecond)

	err := page.Vote(ctx, "a7", model.VoteUp)
	require.Error(t, err)
	require.Zero(t, as.voteCalls)

	notice, ok := notifier.Active(time.Now())
	require.True(t, ok)
	require.Equal(t, "failed to record vote", notice.Message)

	rows, _ := page.Answers(ctx, cache.SortNewest)
	require.Empty(t, rows)
}

func TestQuestionPageSelfVoteNotice(t *testing.T) {
	as := newMockAStore(model.Answer{ID: "a1", QuestionID: "q1", UserID: "me"})
	page, _, notifier := startQuestionPage(t, as)

	err := page.Vote(context.Background(), "a1", model.VoteUp)
	require.Error(t, err)

	notice, ok := notifier.Active(time.Now())
	require.True(t, ok)
	require.Equal(t, "you cannot vote on your own answer", notice.Message)
}

func TestQuestionPageGoneOnRemoteDelete(t *testing.T) {
	page, subs, _ := startQuestionPage(t, newMockAStore())

	src := subs.sources[TopicQuestions+"|id=eq.q1"]
	src.push(feed.Event{
		Topic: TopicQuestions,
		Kind:  feed.KindDelete,
		Old:   json.RawMessage(`{"id":"q1"}`),
	})

	select {
	case <-page.Gone():
	case <-time.After(time.Second):
		t.Fatal("Gone never fired after the question's delete event")
	}
}

func TestQuestionPageTracksQuestionEdits(t *testing.T) {
	page, subs, _ := startQuestionPage(t, newMockAStore())
	ctx := context.Background()

	src := subs.sources[TopicQuestions+"|id=eq.q1"]
	src.push(feed.Event{
		Topic: TopicQuestions,
		Kind:  feed.KindUpdate,
		New:   json.RawMessage(`{"id":"q1","title":"edited"}`),
	})

	require.Eventually(t, func() bool {
		return page.Question(ctx).Title == "edited"
	}, time.Second, 5*time.Millisecond)
}

func TestListPageDebouncedSearch(t *testing.T) {
	qs := &mockQStore{rows: []model.Question{
		{ID: "1", Title: "Why is the sky blue?"},
		{ID: "2", Title: "How deep is the ocean?"},
	}}
	subs := newFakeSubscriber()
	user := model.UserIdentity{ID: "me"}
	page := NewListPage(cache.NewQuestionCache(qs, user, testLogger()), subs, view.NewNotifier(), user, testLogger())

	var mu sync.Mutex
	var results [][]model.Question
	page.OnSearchResults(func(rows []model.Question) {
		mu.Lock()
		results = append(results, rows)
		mu.Unlock()
	})
	require.NoError(t, page.Start(context.Background()))
	t.Cleanup(page.Close)

	// A typing burst settles into one callback carrying the last value.
	page.SearchInput("s")
	page.SearchInput("sk")
	page.SearchInput("sky")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	require.Len(t, results[0], 1)
	require.Equal(t, "1", results[0][0].ID)
}
