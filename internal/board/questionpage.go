package board

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/cache"
	"github.com/jeyaram1023/doubt-wala/internal/feed"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/view"
)

// QuestionPage is the detail scope for one question: the question row, its
// answers, and the acting user's votes, all kept live by two scoped
// subscriptions. Same single-loop discipline as ListPage.
type QuestionPage struct {
	answers  *cache.AnswerCache
	qstore   cache.QuestionStore
	subs     Subscriber
	notifier *view.Notifier
	logger   *slog.Logger
	user     model.UserIdentity

	questionID string
	question   model.Question

	commands  chan func()
	done      chan struct{}
	closeOnce sync.Once
	gone      chan struct{}
	goneOnce  sync.Once

	answerSub   EventSource
	questionSub EventSource
}

// NewQuestionPage wires the detail page for one question. The question row
// itself is passed in from the list scope; the page keeps it fresh from the
// feed.
func NewQuestionPage(q model.Question, ac *cache.AnswerCache, subs Subscriber, notifier *view.Notifier, user model.UserIdentity, logger *slog.Logger) *QuestionPage {
	return &QuestionPage{
		answers:    ac,
		subs:       subs,
		notifier:   notifier,
		logger:     logger,
		user:       user,
		questionID: q.ID,
		question:   q,
		commands:   make(chan func(), 16),
		done:       make(chan struct{}),
		gone:       make(chan struct{}),
	}
}

// Start subscribes to the question's rows, loads answers and votes, and
// launches the loop.
func (p *QuestionPage) Start(ctx context.Context) error {
	answerSub, err := p.subs.Subscribe(TopicAnswers, QuestionFilter(p.questionID))
	if err != nil {
		return err
	}
	questionSub, err := p.subs.Subscribe(TopicQuestions, RowFilter(p.questionID))
	if err != nil {
		answerSub.Close()
		return err
	}
	p.answerSub = answerSub
	p.questionSub = questionSub

	if err := p.answers.LoadAll(ctx); err != nil {
		answerSub.Close()
		questionSub.Close()
		return err
	}
	if err := p.answers.LoadVotes(ctx); err != nil {
		// Voting still works; the toggle state is just unknown.
		p.logger.Warn("vote map unavailable", slog.String("error", err.Error()))
	}

	go p.run(ctx)
	return nil
}

// Close stops the loop and both subscriptions.
func (p *QuestionPage) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		if p.answerSub != nil {
			p.answerSub.Close()
		}
		if p.questionSub != nil {
			p.questionSub.Close()
		}
	})
}

// Gone is closed when the question itself is deleted remotely; the UI
// navigates back to the list.
func (p *QuestionPage) Gone() <-chan struct{} {
	return p.gone
}

func (p *QuestionPage) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.Close()
			return
		case <-p.done:
			return
		case cmd := <-p.commands:
			cmd()
		case ev, ok := <-p.answerSub.Events():
			if !ok {
				return
			}
			p.handleAnswerEvent(ctx, ev)
		case ev, ok := <-p.questionSub.Events():
			if !ok {
				return
			}
			p.handleQuestionEvent(ev)
		}
	}
}

func (p *QuestionPage) do(ctx context.Context, cmd func()) bool {
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

func (p *QuestionPage) handleAnswerEvent(ctx context.Context, ev feed.Event) {
	switch ev.Kind {
	case feed.KindConnected:
		if err := p.answers.LoadAll(ctx); err != nil {
			p.notifier.Error("could not refresh answers", time.Now())
		}
	case feed.KindInsert:
		a, err := decodeAnswer(ev.New)
		if err != nil {
			p.logger.Warn("dropping malformed insert", slog.String("error", err.Error()))
			return
		}
		p.answers.ApplyRemoteInsert(a)
		if a.UserID != p.user.ID {
			p.notifier.Info("new answer posted", time.Now())
		}
	case feed.KindUpdate:
		patch, err := decodeAnswerPatch(ev.New)
		if err != nil {
			p.logger.Warn("dropping malformed update", slog.String("error", err.Error()))
			return
		}
		p.answers.ApplyRemoteUpdate(patch)
	case feed.KindDelete:
		id, err := rowID(ev.Old)
		if err != nil {
			p.logger.Warn("dropping malformed delete", slog.String("error", err.Error()))
			return
		}
		p.answers.ApplyRemoteDelete(id)
	}
}

func (p *QuestionPage) handleQuestionEvent(ev feed.Event) {
	switch ev.Kind {
	case feed.KindUpdate:
		patch, err := decodeQuestionPatch(ev.New)
		if err != nil {
			p.logger.Warn("dropping malformed update", slog.String("error", err.Error()))
			return
		}
		if patch.ID == p.questionID {
			patch.Merge(&p.question)
		}
	case feed.KindDelete:
		id, err := rowID(ev.Old)
		if err != nil {
			return
		}
		if id == p.questionID {
			p.goneOnce.Do(func() { close(p.gone) })
		}
	}
}

// Question returns the current question row.
func (p *QuestionPage) Question(ctx context.Context) model.Question {
	var q model.Question
	p.do(ctx, func() { q = p.question })
	return q
}

// Answers returns the sorted answer projection with the acting user's vote
// per row.
func (p *QuestionPage) Answers(ctx context.Context, mode cache.SortMode) ([]model.Answer, map[string]model.VoteType) {
	var (
		out   []model.Answer
		votes map[string]model.VoteType
	)
	p.do(ctx, func() {
		out = p.answers.Answers(mode)
		votes = make(map[string]model.VoteType, len(out))
		for _, a := range out {
			if t, ok := p.answers.VoteFor(a.ID); ok {
				votes[a.ID] = t
			}
		}
	})
	return out, votes
}

// Submit posts a new answer.
func (p *QuestionPage) Submit(ctx context.Context, content string) (*model.Answer, error) {
	var (
		a   *model.Answer
		err error
	)
	if !p.do(ctx, func() { a, err = p.answers.Submit(ctx, content) }) {
		return nil, closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not post your answer", time.Now())
	}
	return a, err
}

// Edit updates an owned answer.
func (p *QuestionPage) Edit(ctx context.Context, id, content string) (*model.Answer, error) {
	var (
		a   *model.Answer
		err error
	)
	if !p.do(ctx, func() { a, err = p.answers.Edit(ctx, id, content) }) {
		return nil, closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not update your answer", time.Now())
	}
	return a, err
}

// Delete removes an owned answer.
func (p *QuestionPage) Delete(ctx context.Context, id string) error {
	var err error
	if !p.do(ctx, func() { err = p.answers.Delete(ctx, id) }) {
		return closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error("could not delete your answer", time.Now())
	}
	return err
}

// Vote applies the toggle protocol to one answer. Every failure surfaces
// exactly one notice.
func (p *QuestionPage) Vote(ctx context.Context, answerID string, t model.VoteType) error {
	var err error
	if !p.do(ctx, func() { err = p.answers.RecordVote(ctx, answerID, t) }) {
		return closedErr(ctx)
	}
	if err != nil {
		p.notifier.Error(voteNoticeFor(err), time.Now())
	}
	return err
}

func voteNoticeFor(err error) string {
	if msg := userMessage(err); msg != "" {
		return msg
	}
	return "could not record your vote"
}
