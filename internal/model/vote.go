package model

import "time"

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether t is one of the two known directions.
func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown
}

// Vote has composite identity (AnswerID, UserID): at most one row per user
// per answer. Casting the same direction twice removes the row instead.
type Vote struct {
	AnswerID  string    `json:"answer_id"`
	UserID    string    `json:"user_id"`
	Type      VoteType  `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}
