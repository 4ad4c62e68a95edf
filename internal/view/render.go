package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// QuestionLine renders one row of the home list.
func QuestionLine(q model.Question, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", Truncate(q.Title, 80))
	if tags := TagLine(q.Tags); tags != "" {
		fmt.Fprintf(&b, " %s", tags)
	}
	fmt.Fprintf(&b, " — %s, %s", DisplayName(q.Author), RelativeTime(q.CreatedAt, now))
	if q.AnswerCount == 1 {
		b.WriteString(", 1 answer")
	} else if q.AnswerCount > 1 {
		fmt.Fprintf(&b, ", %d answers", q.AnswerCount)
	}
	return b.String()
}

// QuestionDetail renders the question header of the detail scope.
func QuestionDetail(q model.Question, now time.Time) string {
	var b strings.Builder
	b.WriteString(q.Title)
	b.WriteString("\n")
	if q.Description != "" {
		b.WriteString(q.Description)
		b.WriteString("\n")
	}
	if tags := TagLine(q.Tags); tags != "" {
		b.WriteString(tags)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "asked by %s %s", DisplayName(q.Author), RelativeTime(q.CreatedAt, now))
	return b.String()
}

// AnswerLine renders one answer row with its server-computed vote total and
// the acting user's toggle state.
func AnswerLine(a model.Answer, myVote model.VoteType, now time.Time) string {
	marker := " "
	switch myVote {
	case model.VoteUp:
		marker = "▲"
	case model.VoteDown:
		marker = "▼"
	}
	return fmt.Sprintf("%s %s  %s — %s, %s",
		marker,
		VoteBadge(a.Votes),
		Truncate(a.Content, 100),
		DisplayName(a.Author),
		RelativeTime(a.CreatedAt, now),
	)
}
