// Package model defines the entities held by the entity caches and exchanged
// with the data store. Fields the store may omit (the author join, optional
// description) are pointers so absence is visible in the type, not a runtime
// guess.
package model

import "time"

// Author is the denormalized user view attached to questions and answers by
// a read-time join. It is never written back by the client.
type Author struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Question is a posted question. ID is opaque and store-assigned; Votes and
// timestamps are server-maintained.
type Question struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	UserID      string    `json:"user_id"`
	Author      *Author   `json:"author,omitempty"` // optional join, may be absent
	AnswerCount int       `json:"answer_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuestionPatch is a partial question as delivered by an update frame on the
// change feed or sent to the store's PATCH endpoint. Nil means "field not
// present"; merge keeps the prior value.
type QuestionPatch struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Merge applies the fields present in the patch onto q. The author join and
// anything the patch does not carry are retained.
func (p QuestionPatch) Merge(q *Question) {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Tags != nil {
		q.Tags = *p.Tags
	}
	if p.UpdatedAt != nil {
		q.UpdatedAt = *p.UpdatedAt
	}
}
