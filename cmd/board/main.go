// Command board is a terminal client for the Q&A board. It keeps a live
// local cache in sync with the store over the change feed and renders it
// on demand.
//
// Commands:
//
//	signin <email>             request and redeem a sign-in link
//	list [text]                show questions, optionally filtered
//	tag <tag>                  show questions matching a tag
//	ask <title> | <body>       post a question
//	open <n>                   open the n-th listed question
//	answer <body>              answer the open question
//	vote <n> up|down           toggle a vote on the n-th answer
//	mine                       show my questions and answers
//	search <text>              live search with debounced input
//	me                         show the signed-in profile
//	name <display name>        change the display name
//	back                       close the open question
//	quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/board"
	"github.com/jeyaram1023/doubt-wala/internal/cache"
	"github.com/jeyaram1023/doubt-wala/internal/config"
	"github.com/jeyaram1023/doubt-wala/internal/feed"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/session"
	"github.com/jeyaram1023/doubt-wala/internal/store"
	"github.com/jeyaram1023/doubt-wala/internal/view"
)

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	client   *store.Client
	gate     *session.Gate
	notifier *view.Notifier

	feedClient *feed.Client
	listPage   *board.ListPage
	detail     *board.QuestionPage

	// Last rendered rows, so "open 2" and "vote 1 up" can refer to them.
	listed  []model.Question
	answers []model.Answer
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	cfg := config.Load()

	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   store.New(cfg.StoreURL, cfg.AccessToken, logger),
		notifier: view.NewNotifier(),
	}
	a.gate = session.New(a.client, logger)

	ctx := context.Background()
	if cfg.AccessToken != "" {
		if err := a.connect(ctx, cfg.AccessToken); err != nil {
			fmt.Println("session expired, sign in again:", err)
		}
	} else {
		fmt.Println("not signed in; use: signin <email>")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		a.showNotice()
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := a.dispatch(ctx, line); err != nil {
			fmt.Println("error:", err)
		}
	}
	a.shutdown()
}

func (a *app) dispatch(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "signin":
		return a.signIn(ctx, rest)
	case "list":
		return a.list(ctx, cache.Query{Text: rest})
	case "tag":
		return a.list(ctx, cache.Query{Tags: model.ParseTags(rest)})
	case "ask":
		return a.ask(ctx, rest)
	case "open":
		return a.open(ctx, rest)
	case "answer":
		return a.answer(ctx, rest)
	case "vote":
		return a.vote(ctx, rest)
	case "mine":
		return a.mine(ctx)
	case "search":
		return a.search(rest)
	case "me":
		return a.whoAmI(ctx)
	case "name":
		return a.rename(ctx, rest)
	case "back":
		a.closeDetail()
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// signIn performs the full magic-link dance. The dev store returns the
// token in the link response, so no inbox detour is needed.
func (a *app) signIn(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("usage: signin <email>")
	}
	token, err := a.client.RequestSignInLink(ctx, email)
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Print("check your email and paste the token: ")
		reader := bufio.NewReader(os.Stdin)
		token, _ = reader.ReadString('\n')
		token = strings.TrimSpace(token)
	}
	access, err := a.client.VerifySignIn(ctx, email, token)
	if err != nil {
		return err
	}
	return a.connect(ctx, access)
}

// connect resolves the identity, ensures the profile exists, opens the
// change feed and starts the question list page.
func (a *app) connect(ctx context.Context, accessToken string) error {
	a.client.SetAccessToken(accessToken)

	user, err := a.gate.Resolve(ctx)
	if err != nil {
		return err
	}
	profile, err := a.gate.EnsureProfile(ctx)
	if err != nil {
		return err
	}

	a.feedClient = feed.NewClient(feed.Options{
		Dial:   feed.Dial(a.cfg.StoreURL, accessToken),
		Logger: a.logger,
	})
	if err := a.feedClient.Connect(ctx); err != nil {
		return fmt.Errorf("connecting change feed: %w", err)
	}

	subs := board.SubscriberFunc(func(topic, filter string) (board.EventSource, error) {
		return a.feedClient.Subscribe(topic, filter)
	})
	qc := cache.NewQuestionCache(a.client, user, a.logger)
	a.listPage = board.NewListPage(qc, subs, a.notifier, user, a.logger)
	a.listPage.OnSearchResults(func(rows []model.Question) {
		now := time.Now()
		fmt.Println()
		for i, q := range rows {
			fmt.Printf("%2d. %s\n", i+1, view.QuestionLine(q, now))
		}
		if len(rows) == 0 {
			fmt.Println("no matches")
		}
		fmt.Print("> ")
	})
	if err := a.listPage.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("signed in as %s <%s>\n", profile.DisplayName, user.Email)
	return a.list(ctx, cache.Query{})
}

func (a *app) list(ctx context.Context, q cache.Query) error {
	if a.listPage == nil {
		return fmt.Errorf("sign in first")
	}
	a.closeDetail()

	a.listed = a.listPage.Questions(ctx, q)
	if a.listPage.State(ctx) == cache.Failed {
		fmt.Println("loading questions failed; retrying")
		if err := a.listPage.Retry(ctx); err != nil {
			return err
		}
		a.listed = a.listPage.Questions(ctx, q)
	}
	if len(a.listed) == 0 {
		fmt.Println("no questions")
		return nil
	}
	now := time.Now()
	for i, question := range a.listed {
		fmt.Printf("%2d. %s\n", i+1, view.QuestionLine(question, now))
	}
	return nil
}

func (a *app) ask(ctx context.Context, rest string) error {
	if a.listPage == nil {
		return fmt.Errorf("sign in first")
	}
	title, body, _ := strings.Cut(rest, "|")
	q, err := a.listPage.Submit(ctx, strings.TrimSpace(title), strings.TrimSpace(body), "")
	if err != nil {
		return err
	}
	fmt.Println("posted:", view.QuestionLine(*q, time.Now()))
	return nil
}

func (a *app) open(ctx context.Context, rest string) error {
	if a.listPage == nil {
		return fmt.Errorf("sign in first")
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 1 || idx > len(a.listed) {
		return fmt.Errorf("usage: open <n> (after list)")
	}
	question := a.listed[idx-1]
	a.closeDetail()

	user, err := a.gate.Require()
	if err != nil {
		return err
	}
	subs := board.SubscriberFunc(func(topic, filter string) (board.EventSource, error) {
		return a.feedClient.Subscribe(topic, filter)
	})
	ac := cache.NewAnswerCache(a.client, a.client, question.ID, user, a.logger)
	a.detail = board.NewQuestionPage(question, ac, subs, a.notifier, user, a.logger)
	if err := a.detail.Start(ctx); err != nil {
		a.detail = nil
		return err
	}
	return a.renderDetail(ctx)
}

func (a *app) renderDetail(ctx context.Context) error {
	now := time.Now()
	fmt.Println(view.QuestionDetail(a.detail.Question(ctx), now))

	rows, myVotes := a.detail.Answers(ctx, cache.SortVotes)
	a.answers = rows
	for i, answer := range rows {
		fmt.Printf("%2d. %s\n", i+1, view.AnswerLine(answer, myVotes[answer.ID], now))
	}
	if len(rows) == 0 {
		fmt.Println("    no answers yet")
	}
	return nil
}

func (a *app) answer(ctx context.Context, body string) error {
	if a.detail == nil {
		return fmt.Errorf("open a question first")
	}
	if _, err := a.detail.Submit(ctx, body); err != nil {
		return err
	}
	return a.renderDetail(ctx)
}

func (a *app) vote(ctx context.Context, rest string) error {
	if a.detail == nil {
		return fmt.Errorf("open a question first")
	}
	nStr, dir, _ := strings.Cut(rest, " ")
	idx, err := strconv.Atoi(nStr)
	if err != nil || idx < 1 || idx > len(a.answers) {
		return fmt.Errorf("usage: vote <n> up|down")
	}
	if err := a.detail.Vote(ctx, a.answers[idx-1].ID, model.VoteType(dir)); err != nil {
		return err
	}
	return a.renderDetail(ctx)
}

// search feeds the text through the debounced input path character by
// character, the way a UI would deliver keystrokes.
func (a *app) search(text string) error {
	if a.listPage == nil {
		return fmt.Errorf("sign in first")
	}
	for i := range text {
		a.listPage.SearchInput(text[:i+1])
	}
	return nil
}

func (a *app) mine(ctx context.Context) error {
	if a.listPage == nil {
		return fmt.Errorf("sign in first")
	}
	questions, err := a.client.MyQuestions(ctx)
	if err != nil {
		return err
	}
	answers, err := a.client.MyAnswers(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	fmt.Printf("your questions (%d):\n", len(questions))
	for _, q := range questions {
		fmt.Println("  " + view.QuestionLine(q, now))
	}
	fmt.Printf("your answers (%d):\n", len(answers))
	for _, ans := range answers {
		title := ans.QuestionTitle
		if title == "" {
			title = ans.QuestionID
		}
		fmt.Printf("  on %q: %s\n", title, view.Truncate(ans.Content, 60))
	}
	return nil
}

func (a *app) whoAmI(ctx context.Context) error {
	profile, err := a.gate.EnsureProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", profile.DisplayName, profile.Email)
	return nil
}

func (a *app) rename(ctx context.Context, displayName string) error {
	user, err := a.gate.Require()
	if err != nil {
		return err
	}
	profile, err := a.client.UpdateDisplayName(ctx, user.ID, displayName)
	if err != nil {
		return err
	}
	fmt.Println("now posting as", profile.DisplayName)
	return nil
}

func (a *app) showNotice() {
	if notice, ok := a.notifier.Active(time.Now()); ok {
		prefix := "note"
		if notice.Level == view.LevelError {
			prefix = "warn"
		}
		fmt.Printf("[%s] %s\n", prefix, notice.Message)
		a.notifier.Clear()
	}
}

func (a *app) closeDetail() {
	if a.detail != nil {
		a.detail.Close()
		a.detail = nil
		a.answers = nil
	}
}

func (a *app) shutdown() {
	a.closeDetail()
	if a.listPage != nil {
		a.listPage.Close()
	}
	if a.feedClient != nil {
		a.feedClient.Close()
	}
}
