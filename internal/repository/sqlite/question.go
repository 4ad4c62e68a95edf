package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
)

// Compile-time checks that *DB satisfies the repository interfaces.
var (
	_ repository.QuestionRepository = (*DB)(nil)
	_ repository.AnswerRepository   = (*DB)(nil)
	_ repository.VoteRepository     = (*DB)(nil)
	_ repository.ProfileRepository  = (*DB)(nil)
	_ repository.TokenRepository    = (*DB)(nil)
)

// questionColumns joins the author profile so reads carry the display name.
// The join is LEFT: a question whose author has no profile row still lists,
// with a NULL author.
const questionColumns = `
	q.id, q.title, q.description, q.tags, q.user_id, q.created_at, q.updated_at,
	p.display_name, p.email,
	(SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id) AS answer_count`

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(raw), nil
}

func scanQuestion(scan func(dest ...any) error) (*model.Question, error) {
	var (
		q           model.Question
		rawTags     string
		displayName sql.NullString
		email       sql.NullString
	)
	err := scan(
		&q.ID, &q.Title, &q.Description, &rawTags, &q.UserID, &q.CreatedAt, &q.UpdatedAt,
		&displayName, &email, &q.AnswerCount,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rawTags), &q.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for question %s: %w", q.ID, err)
	}
	if displayName.Valid {
		q.Author = &model.Author{DisplayName: displayName.String, Email: email.String}
	}
	return &q, nil
}

// CreateQuestion inserts a question row. The caller assigns the id.
func (db *DB) CreateQuestion(ctx context.Context, q *model.Question) error {
	tags, err := encodeTags(q.Tags)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, title, description, tags, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Title, q.Description, tags, q.UserID, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("question", q.ID)
		}
		return fmt.Errorf("sqlite: inserting question %s: %w", q.ID, err)
	}
	return nil
}

// GetQuestionByID retrieves one question with its author join and answer
// count.
func (db *DB) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q
		 LEFT JOIN profiles p ON p.id = q.user_id
		 WHERE q.id = ?`,
		id,
	)
	q, err := scanQuestion(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}
	return q, nil
}

// ListQuestions pages through questions, newest first unless opts says
// otherwise.
func (db *DB) ListQuestions(ctx context.Context, opts repository.ListOptions) ([]model.Question, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	order := "DESC"
	if opts.Oldest {
		order = "ASC"
	}
	where := ""
	args := []any{}
	if opts.UserID != "" {
		where = "WHERE q.user_id = ?"
		args = append(args, opts.UserID)
	}
	args = append(args, limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q
		 LEFT JOIN profiles p ON p.id = q.user_id
		 `+where+`
		 ORDER BY q.created_at `+order+`, q.id `+order+`
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning question: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}
	return questions, nil
}

// UpdateQuestion applies the fields present in the patch and returns the
// fresh row.
func (db *DB) UpdateQuestion(ctx context.Context, id string, patch model.QuestionPatch) (*model.Question, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE questions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating question %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: update result for question %s: %w", id, err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("question", id)
	}
	return db.GetQuestionByID(ctx, id)
}

// DeleteQuestion removes a question; answers and votes cascade.
func (db *DB) DeleteQuestion(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting question %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete result for question %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("question", id)
	}
	return nil
}
