package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/apperror"
	"github.com/jeyaram1023/doubt-wala/internal/model"
	"github.com/jeyaram1023/doubt-wala/internal/repository"
)

// CreateProfile inserts a profile row. A duplicate id or email maps to a
// conflict so the lazy-creation flow can treat it as someone else winning
// the race.
func (db *DB) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, email, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.DisplayName, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", p.ID)
		}
		return fmt.Errorf("sqlite: inserting profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfileByID retrieves a profile by identity id.
func (db *DB) GetProfileByID(ctx context.Context, id string) (*model.UserProfile, error) {
	return db.getProfile(ctx, "id", id)
}

// GetProfileByEmail retrieves a profile by email.
func (db *DB) GetProfileByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return db.getProfile(ctx, "email", email)
}

func (db *DB) getProfile(ctx context.Context, column, value string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at, updated_at
		 FROM profiles WHERE `+column+` = ?`,
		value,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", value)
		}
		return nil, fmt.Errorf("sqlite: getting profile by %s %s: %w", column, value, err)
	}
	return &p, nil
}

// UpdateDisplayName changes a profile's display name and returns the
// fresh row.
func (db *DB) UpdateDisplayName(ctx context.Context, id, displayName string) (*model.UserProfile, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: update result for profile %s: %w", id, err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("profile", id)
	}
	return db.GetProfileByID(ctx, id)
}

// SaveSignInToken stores a pending magic-link token hash, replacing any
// previous pending token for the same email.
func (db *DB) SaveSignInToken(ctx context.Context, t *repository.SignInToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO signin_tokens (email, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		   token_hash = excluded.token_hash,
		   expires_at = excluded.expires_at,
		   created_at = excluded.created_at`,
		t.Email, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving sign-in token for %s: %w", t.Email, err)
	}
	return nil
}

// GetSignInToken retrieves the pending token for an email.
func (db *DB) GetSignInToken(ctx context.Context, email string) (*repository.SignInToken, error) {
	var t repository.SignInToken
	err := db.conn.QueryRowContext(ctx,
		`SELECT email, token_hash, expires_at, created_at
		 FROM signin_tokens WHERE email = ?`,
		email,
	).Scan(&t.Email, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("sign-in token", email)
		}
		return nil, fmt.Errorf("sqlite: getting sign-in token for %s: %w", email, err)
	}
	return &t, nil
}

// DeleteSignInToken removes the pending token; tokens are single-use.
func (db *DB) DeleteSignInToken(ctx context.Context, email string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM signin_tokens WHERE email = ?`, email,
	); err != nil {
		return fmt.Errorf("sqlite: deleting sign-in token for %s: %w", email, err)
	}
	return nil
}
