package model

import "time"

// Answer belongs to exactly one question. Votes is the aggregated total
// computed by the store; the client never sums votes locally.
type Answer struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"question_id"`
	Content       string    `json:"content"`
	UserID        string    `json:"user_id"`
	Author        *Author   `json:"author,omitempty"` // optional join, may be absent
	Votes         int       `json:"votes"`
	QuestionTitle string    `json:"question_title,omitempty"` // populated on profile reads only
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AnswerPatch is a partial answer from a feed update frame or a PATCH call.
type AnswerPatch struct {
	ID        string     `json:"id"`
	Content   *string    `json:"content,omitempty"`
	Votes     *int       `json:"votes,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Merge applies the fields present in the patch onto a.
func (p AnswerPatch) Merge(a *Answer) {
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Votes != nil {
		a.Votes = *p.Votes
	}
	if p.UpdatedAt != nil {
		a.UpdatedAt = *p.UpdatedAt
	}
}
