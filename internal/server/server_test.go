package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/board"
	"github.com/jeyaram1023/doubt-wala/internal/cache"
	"github.com/jeyaram1023/doubt-wala/internal/config"
	"github.com/jeyaram1023/doubt-wala/internal/feed"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/session"
	"github.com/jeyaram1023/doubt-wala/internal/store"
	"github.com/jeyaram1023/doubt-wala/internal/view"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startStore runs the whole store behind an httptest server.
func startStore(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		DBPath:    filepath.Join(t.TempDir(), "test.db"),
		JWTSecret: "integration-test-secret-key",
	}
	srv, err := New(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// signIn walks the magic-link flow and returns an authenticated client
// plus the bearer token it installed.
func signIn(t *testing.T, baseURL, email string) (*store.Client, string) {
	t.Helper()
	client := store.New(baseURL, "", testLogger())
	ctx := context.Background()

	token, err := client.RequestSignInLink(ctx, email)
	require.NoError(t, err)
	require.NotEmpty(t, token, "the dev store returns the link token directly")

	access, err := client.VerifySignIn(ctx, email, token)
	require.NoError(t, err)
	return client, access
}

func TestSignInAndProfileLifecycle(t *testing.T) {
	ts := startStore(t)
	client, _ := signIn(t, ts.URL, "asha@example.com")
	ctx := context.Background()

	gate := session.New(client, testLogger())
	user, err := gate.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)

	profile, err := gate.EnsureProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "asha", profile.DisplayName)

	// Signing in again keeps the same identity.
	again, _ := signIn(t, ts.URL, "asha@example.com")
	user2, err := again.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, user2.ID)
}

func TestQuestionCRUDOverHTTP(t *testing.T) {
	ts := startStore(t)
	client, _ := signIn(t, ts.URL, "asha@example.com")
	ctx := context.Background()

	gate := session.New(client, testLogger())
	_, err := gate.Resolve(ctx)
	require.NoError(t, err)
	_, err = gate.EnsureProfile(ctx)
	require.NoError(t, err)

	created, err := client.CreateQuestion(ctx, store.QuestionDraft{
		Title: "How do goroutines start?",
		Tags:  []string{"go", "concurrency"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	listed, err := client.ListQuestions(ctx, store.OrderNewest)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Author, "lists join the author profile")

	title := "How do goroutines get scheduled?"
	updated, err := client.UpdateQuestion(ctx, created.ID, model.QuestionPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	// A second user cannot edit it.
	other, _ := signIn(t, ts.URL, "rogue@example.com")
	_, err = other.UpdateQuestion(ctx, created.ID, model.QuestionPatch{Title: &title})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, client.DeleteQuestion(ctx, created.ID))
	_, err = client.GetQuestion(ctx, created.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestVoteProtocolOverHTTP(t *testing.T) {
	ts := startStore(t)
	author, _ := signIn(t, ts.URL, "author@example.com")
	voter, _ := signIn(t, ts.URL, "voter@example.com")
	ctx := context.Background()

	q, err := author.CreateQuestion(ctx, store.QuestionDraft{Title: "Q"})
	require.NoError(t, err)
	a, err := author.CreateAnswer(ctx, store.AnswerDraft{QuestionID: q.ID, Content: "because"})
	require.NoError(t, err)

	// Self-vote is rejected server-side too.
	err = author.UpsertVote(ctx, a.ID, model.VoteUp)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, voter.UpsertVote(ctx, a.ID, model.VoteUp))
	fresh, err := voter.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Votes)

	// Replacing on the composite key flips, never double-counts.
	require.NoError(t, voter.UpsertVote(ctx, a.ID, model.VoteDown))
	fresh, err = voter.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, fresh.Votes)

	require.NoError(t, voter.DeleteVote(ctx, a.ID))
	fresh, err = voter.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Votes)

	votes, err := voter.ListVotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestFeedDeliversLiveChanges(t *testing.T) {
	ts := startStore(t)
	writer, _ := signIn(t, ts.URL, "writer@example.com")
	_, readerToken := signIn(t, ts.URL, "reader@example.com")
	ctx := context.Background()

	fc := feed.NewClient(feed.Options{
		Dial:   feed.Dial(ts.URL, readerToken),
		Logger: testLogger(),
	})
	require.NoError(t, fc.Connect(ctx))
	defer fc.Close()

	sub, err := fc.Subscribe(board.TopicQuestions, "")
	require.NoError(t, err)

	// First event is the connected marker.
	ev := nextEvent(t, sub)
	assert.Equal(t, feed.KindConnected, ev.Kind)

	q, err := writer.CreateQuestion(ctx, store.QuestionDraft{Title: "live?"})
	require.NoError(t, err)

	ev = nextEvent(t, sub)
	assert.Equal(t, feed.KindInsert, ev.Kind)
	var inserted model.Question
	require.NoError(t, json.Unmarshal(ev.New, &inserted))
	assert.Equal(t, q.ID, inserted.ID)
}

func TestBoardPageAgainstRealStore(t *testing.T) {
	ts := startStore(t)
	other, _ := signIn(t, ts.URL, "other@example.com")
	me, meToken := signIn(t, ts.URL, "me@example.com")
	ctx := context.Background()

	gate := session.New(me, testLogger())
	user, err := gate.Resolve(ctx)
	require.NoError(t, err)
	_, err = gate.EnsureProfile(ctx)
	require.NoError(t, err)

	fc := feed.NewClient(feed.Options{
		Dial:   feed.Dial(ts.URL, meToken),
		Logger: testLogger(),
	})
	require.NoError(t, fc.Connect(ctx))
	defer fc.Close()

	subs := board.SubscriberFunc(func(topic, filter string) (board.EventSource, error) {
		return fc.Subscribe(topic, filter)
	})

	page := board.NewListPage(
		cache.NewQuestionCache(me, user, testLogger()),
		subs,
		view.NewNotifier(),
		user,
		testLogger(),
	)
	require.NoError(t, page.Start(ctx))
	defer page.Close()

	// A question posted by someone else arrives through the feed.
	posted, err := other.CreateQuestion(ctx, store.QuestionDraft{Title: "From the other side"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, q := range page.Questions(ctx, cache.Query{}) {
			if q.ID == posted.ID {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	// Our own submit reconciles immediately, and the feed echo that
	// follows must not produce a duplicate row.
	mine, err := page.Submit(ctx, "From here", "", "go")
	require.NoError(t, err)

	assert.Never(t, func() bool {
		count := 0
		for _, q := range page.Questions(ctx, cache.Query{}) {
			if q.ID == mine.ID {
				count++
			}
		}
		return count != 1
	}, 500*time.Millisecond, 25*time.Millisecond)
}

func TestAnonymousReadsAndProtectedWrites(t *testing.T) {
	ts := startStore(t)
	author, _ := signIn(t, ts.URL, "author@example.com")
	ctx := context.Background()

	_, err := author.CreateQuestion(ctx, store.QuestionDraft{Title: "public?"})
	require.NoError(t, err)

	anon := store.New(ts.URL, "", testLogger())
	listed, err := anon.ListQuestions(ctx, store.OrderNewest)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = anon.CreateQuestion(ctx, store.QuestionDraft{Title: "nope"})
	require.Error(t, err)
	var se *store.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, store.CodeUnauthorized, se.Code)
}

func nextEvent(t *testing.T, sub *feed.Subscription) feed.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a feed event")
		return feed.Event{}
	}
}
