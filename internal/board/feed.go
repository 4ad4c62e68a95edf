// Package board runs the page controllers. Each page owns its caches and
// drives them from a single goroutine: commands from the UI and events from
// the change feed funnel into one loop, so the caches never need locks.
package board

import (
	"encoding/json"
	"fmt"

	"github.com/jeyaram1023/doubt-wala/internal/feed"
	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// Topics published by the data store's change feed.
const (
	TopicQuestions = "questions"
	TopicAnswers   = "answers"
)

// QuestionFilter scopes a subscription to one question's rows.
func QuestionFilter(questionID string) string {
	return "question_id=eq." + questionID
}

// RowFilter scopes a subscription to a single row by id.
func RowFilter(id string) string {
	return "id=eq." + id
}

// EventSource is the receive side of a feed subscription. *feed.Subscription
// satisfies it; tests feed events through a channel of their own.
type EventSource interface {
	Events() <-chan feed.Event
	Close()
}

// Subscriber opens scoped subscriptions. *feed.Client satisfies it via
// subscriberFunc in the wiring code.
type Subscriber interface {
	Subscribe(topic, filter string) (EventSource, error)
}

// SubscriberFunc adapts a closure to the Subscriber interface.
type SubscriberFunc func(topic, filter string) (EventSource, error)

func (f SubscriberFunc) Subscribe(topic, filter string) (EventSource, error) {
	return f(topic, filter)
}

func decodeQuestion(raw json.RawMessage) (model.Question, error) {
	var q model.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return model.Question{}, fmt.Errorf("decoding question row: %w", err)
	}
	return q, nil
}

func decodeQuestionPatch(raw json.RawMessage) (model.QuestionPatch, error) {
	var p model.QuestionPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.QuestionPatch{}, fmt.Errorf("decoding question patch: %w", err)
	}
	return p, nil
}

func decodeAnswer(raw json.RawMessage) (model.Answer, error) {
	var a model.Answer
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Answer{}, fmt.Errorf("decoding answer row: %w", err)
	}
	return a, nil
}

func decodeAnswerPatch(raw json.RawMessage) (model.AnswerPatch, error) {
	var p model.AnswerPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.AnswerPatch{}, fmt.Errorf("decoding answer patch: %w", err)
	}
	return p, nil
}

// rowID extracts just the id from a raw row; delete frames carry only the
// old row's key columns.
func rowID(raw json.RawMessage) (string, error) {
	var key struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &key); err != nil {
		return "", fmt.Errorf("decoding row key: %w", err)
	}
	return key.ID, nil
}
