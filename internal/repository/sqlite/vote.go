package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// UpsertVote inserts or replaces the vote for (answer_id, user_id). The
// composite primary key means a user holds at most one vote per answer.
func (db *DB) UpsertVote(ctx context.Context, v *model.Vote) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO votes (answer_id, user_id, vote_type, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (answer_id, user_id) DO UPDATE SET vote_type = excluded.vote_type`,
		v.AnswerID, v.UserID, string(v.Type), v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting vote (%s, %s): %w", v.AnswerID, v.UserID, err)
	}
	return nil
}

// DeleteVote removes the vote row for (answer_id, user_id).
func (db *DB) DeleteVote(ctx context.Context, answerID, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM votes WHERE answer_id = ? AND user_id = ?`,
		answerID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting vote (%s, %s): %w", answerID, userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete result for vote (%s, %s): %w", answerID, userID, err)
	}
	if affected == 0 {
		return apperror.NotFound("vote", answerID)
	}
	return nil
}

// ListVotesByUser returns all of one user's vote rows.
func (db *DB) ListVotesByUser(ctx context.Context, userID string) ([]model.Vote, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT answer_id, user_id, vote_type, created_at
		 FROM votes WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing votes for user %s: %w", userID, err)
	}
	defer rows.Close()

	votes := []model.Vote{}
	for rows.Next() {
		var (
			v model.Vote
			t string
		)
		if err := rows.Scan(&v.AnswerID, &v.UserID, &t, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote: %w", err)
		}
		v.Type = model.VoteType(t)
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating votes: %w", err)
	}
	return votes, nil
}
