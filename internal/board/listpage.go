package board

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/cache"
	"github.com/jeyaram1023/doubt-wala/internal/config"
	"github.com/jeyaram1023/doubt-wala/internal/feed"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/view"
)

// ListPage is the home scope: the question collection, a live subscription
// over it, and the search box. All cache access happens on the page
// goroutine; public methods post commands into the loop and wait for the
// reply.
type ListPage struct {
	cache    *cache.QuestionCache
	subs     Subscriber
	notifier *view.Notifier
	logger   *slog.Logger
	user     model.UserIdentity

	commands  chan func()
	done      chan struct{}
	closeOnce sync.Once
	sub       EventSource

	search   *view.Debouncer
	onSearch func([]model.Question)
}

// NewListPage wires the page. Start must be called before any other method.
func NewListPage(qc *cache.QuestionCache, subs Subscriber, notifier *view.Notifier, user model.UserIdentity, logger *slog.Logger) *ListPage {
	p := &ListPage{
		cache:    qc,
		subs:     subs,
		notifier: notifier,
		logger:   logger,
		user:     user,
		commands: make(chan func(), 16),
		done:     make(chan struct{}),
	}
	p.search = view.NewDebouncer(config.DebounceInterval, func(text string) {
		p.do(context.Background(), func() {
			if p.onSearch != nil {
				p.onSearch(p.cache.Search(cache.Query{Text: text}))
			}
		})
	})
	return p
}

// OnSearchResults installs the callback for debounced search input. Set it
// before Start; the callback runs on the page goroutine.
func (p *ListPage) OnSearchResults(fn func([]model.Question)) {
	p.onSearch = fn
}

// SearchInput feeds one keystroke's worth of search text. Results arrive
// through the OnSearchResults callback once input has settled.
func (p *ListPage) SearchInput(text string) {
	p.search.Set(text)
}

// Start loads the collection, opens the live subscription and launches the
// reconciliation loop. The subscription is opened before the load so changes
// landing during the fetch are replayed onto fresh data, not lost.
func (p *ListPage) Start(ctx context.Context) error {
	sub, err := p.subs.Subscribe(TopicQuestions, "")
	if err != nil {
		return err
	}
	p.sub = sub

	if err := p.cache.LoadAll(ctx); err != nil {
		sub.Close()
		return err
	}

	go p.run(ctx)
	return nil
}

// Close stops the loop and the subscription. Commands posted after Close
// are dropped, so a store reply racing the close cannot touch dead state.
func (p *ListPage) Close() {
	p.closeOnce.Do(func() {
		p.search.Stop()
		close(p.done)
		if p.sub != nil {
			p.sub.Close()
		}
	})
}

func (p *ListPage) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.Close()
			return
		case <-p.done:
			return
		case cmd := <-p.commands:
			cmd()
		case ev, ok := <-p.sub.Events():
			if !ok {
				return
			}
			p.handleEvent(ctx, ev)
		}
	}
}

// do posts a command to the loop and waits until it ran. Returns false if
// the page closed first.
func (p *ListPage) do(ctx context.Context, cmd func()) bool {
	ran := make(chan struct{})
	wrapped := func() {
		cmd()
		close(ran)
	}
	select {
	case p.commands <- wrapped:
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
	select {
	case <-ran:
		return true
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (p *ListPage) handleEvent(ctx context.Context, ev feed.Event) {
	switch ev.Kind {
	case feed.KindConnected:
		// A reconnect may have missed changes; reload closes the gap.
		if err := p.cache.LoadAll(ctx); err != nil {
			p.notifier.Error("could not refresh questions", time.Now())
		}
	case feed.KindInsert:
		q, err := decodeQuestion(ev.New)
		if err != nil {
			p.logger.Warn("dropping malformed insert", slog.String("error", err.Error()))
			return
		}
		p.cache.ApplyRemoteInsert(q)
		if q.UserID != p.user.ID {
			p.notifier.Info("new question posted", time.Now())
		}
	case feed.KindUpdate:
		patch, err := decodeQuestionPatch(ev.New)
		if err != nil {
			p.logger.Warn("dropping malformed update", slog.String("error", err.Error()))
			return
		}
		p.cache.ApplyRemoteUpdate(patch)
	case feed.KindDelete:
		id, err := rowID(ev.Old)
		if err != nil {
			p.logger.Warn("dropping malformed delete", slog.String("error", err.Error()))
			return
		}
		p.cache.ApplyRemoteDelete(id)
	}
}

// Questions returns the current projection for a query.
func (p *ListPage) Questions(ctx context.Context, q cache.Query) []model.Question {
	var out []model.Question
	p.do(ctx, func() { out = p.cache.Search(q) })
	return out
}

// State reports the scope state.
func (p *ListPage) State(ctx context.Context) cache.State {
	s := cache.Empty
	p.do(ctx, func() { s = p.cache.State() })
	return s
}

// Retry re-runs a failed load.
func (p *ListPage) Retry(ctx context.Context) error {
	var err error
	if !p.do(ctx, func() { err = p.cache.LoadAll(ctx) }) {
		return closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not load questions", time.Now())
	}
	return err
}

// Submit posts a new question. Failures surface one notice and the error.
func (p *ListPage) Submit(ctx context.Context, title, description, tags string) (*model.Question, error) {
	var (
		q   *model.Question
		err error
	)
	if !p.do(ctx, func() { q, err = p.cache.Submit(ctx, title, description, tags) }) {
		return nil, closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not post your question", time.Now())
	}
	return q, err
}

// Edit updates an owned question.
func (p *ListPage) Edit(ctx context.Context, id, title, description, tags string) (*model.Question, error) {
	var (
		q   *model.Question
		err error
	)
	if !p.do(ctx, func() { q, err = p.cache.Edit(ctx, id, title, description, tags) }) {
		return nil, closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not update your question", time.Now())
	}
	return q, err
}

// Delete removes an owned question.
func (p *ListPage) Delete(ctx context.Context, id string) error {
	var err error
	if !p.do(ctx, func() { err = p.cache.Delete(ctx, id) }) {
		return closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not delete your question", time.Now())
	}
	return err
}
