package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
)

// answerColumns computes the vote total inline: up counts +1, down counts
// -1. The aggregate lives here, never in the client.
const answerColumns = `
	a.id, a.question_id, a.content, a.user_id, a.created_at, a.updated_at,
	p.display_name, p.email,
	COALESCE((SELECT SUM(CASE WHEN v.vote_type = 'up' THEN 1 ELSE -1 END)
	          FROM votes v WHERE v.answer_id = a.id), 0) AS votes`

func scanAnswer(scan func(dest ...any) error) (*model.Answer, error) {
	var (
		a           model.Answer
		displayName sql.NullString
		email       sql.NullString
	)
	err := scan(
		&a.ID, &a.QuestionID, &a.Content, &a.UserID, &a.CreatedAt, &a.UpdatedAt,
		&displayName, &email, &a.Votes,
	)
	if err != nil {
		return nil, err
	}
	if displayName.Valid {
		a.Author = &model.Author{DisplayName: displayName.String, Email: email.String}
	}
	return &a, nil
}

// CreateAnswer inserts an answer row. The question must exist; the foreign
// key enforces it.
func (db *DB) CreateAnswer(ctx context.Context, a *model.Answer) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, content, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.QuestionID, a.Content, a.UserID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("answer", a.ID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperror.NotFound("question", a.QuestionID)
		}
		return fmt.Errorf("sqlite: inserting answer %s: %w", a.ID, err)
	}
	return nil
}

// GetAnswerByID retrieves one answer with its author join and vote total.
func (db *DB) GetAnswerByID(ctx context.Context, id string) (*model.Answer, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+answerColumns+`
		 FROM answers a
		 LEFT JOIN profiles p ON p.id = a.user_id
		 WHERE a.id = ?`,
		id,
	)
	a, err := scanAnswer(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %s: %w", id, err)
	}
	return a, nil
}

// ListAnswers returns a question's answers, oldest first unless opts says
// otherwise.
func (db *DB) ListAnswers(ctx context.Context, questionID string, opts repository.ListOptions) ([]model.Answer, error) {
	order := "DESC"
	if opts.Oldest {
		order = "ASC"
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+answerColumns+`
		 FROM answers a
		 LEFT JOIN profiles p ON p.id = a.user_id
		 WHERE a.question_id = ?
		 ORDER BY a.created_at `+order+`, a.id `+order,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for question %s: %w", questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer: %w", err)
		}
		answers = append(answers, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}
	return answers, nil
}

// ListAnswersByUser returns one user's answers across all questions, with
// the question title attached for profile views.
func (db *DB) ListAnswersByUser(ctx context.Context, userID string) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+answerColumns+`, q.title
		 FROM answers a
		 LEFT JOIN profiles p ON p.id = a.user_id
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.user_id = ?
		 ORDER BY a.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for user %s: %w", userID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		var (
			a           model.Answer
			displayName sql.NullString
			email       sql.NullString
		)
		err := rows.Scan(
			&a.ID, &a.QuestionID, &a.Content, &a.UserID, &a.CreatedAt, &a.UpdatedAt,
			&displayName, &email, &a.Votes, &a.QuestionTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer: %w", err)
		}
		if displayName.Valid {
			a.Author = &model.Author{DisplayName: displayName.String, Email: email.String}
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}
	return answers, nil
}

// UpdateAnswer applies the fields present in the patch and returns the
// fresh row.
func (db *DB) UpdateAnswer(ctx context.Context, id string, patch model.AnswerPatch) (*model.Answer, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE answers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating answer %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: update result for answer %s: %w", id, err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("answer", id)
	}
	return db.GetAnswerByID(ctx, id)
}

// DeleteAnswer removes an answer; its votes cascade.
func (db *DB) DeleteAnswer(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting answer %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete result for answer %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("answer", id)
	}
	return nil
}
