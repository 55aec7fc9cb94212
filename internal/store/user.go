package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"socialcore/internal/model"
)

// CreateUser inserts an unconfirmed user row. Name/email uniqueness is
// enforced case-insensitively via a unique index on lower(name) /
// lower(email); a violation surfaces as ErrNameExists/ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash, confirmationToken string) (*model.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, confirmed, confirmation_token)
		VALUES ($1, $2, $3, false, $4)
		RETURNING id, name, email, password_hash, bio, confirmed, confirmation_token,
		          reset_token, reset_token_sent_at, refresh_token, refresh_token_sent_at,
		          posts_count, created_at, updated_at
	`
	var u model.User
	err := s.db.GetContext(ctx, &u, query, name, strings.ToLower(email), passwordHash, confirmationToken)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "email") {
				return nil, model.ErrEmailExists
			}
			return nil, model.ErrNameExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// GetUserByNameOrEmail is used by mention resolution (§4.7): both
// grammars resolve case-insensitively against name or email.
func (s *Store) GetUserByNameOrEmail(ctx context.Context, handle string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT * FROM users WHERE lower(name) = lower($1) OR email = lower($1)`, handle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by handle: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByConfirmationToken(ctx context.Context, token string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE confirmation_token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by confirmation token: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE reset_token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return &u, nil
}

// ConfirmUser flips confirmed=true and clears the confirmation token.
func (s *Store) ConfirmUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET confirmed = true, confirmation_token = NULL, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, userID int64, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $1, reset_token_sent_at = now(), updated_at = now() WHERE id = $2`,
		token, userID)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// ResetPassword consumes the reset token and sets a new password hash.
func (s *Store) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, reset_token = NULL, reset_token_sent_at = NULL, updated_at = now() WHERE id = $2`,
		passwordHash, userID)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// SetRefreshToken persists the single live refresh credential copy
// used for rotation/revocation per §4.8. Passing an empty value
// revokes it.
func (s *Store) SetRefreshToken(ctx context.Context, userID int64, token string) error {
	var arg interface{}
	if token != "" {
		arg = token
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $1, refresh_token_sent_at = now(), updated_at = now() WHERE id = $2`,
		arg, userID)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}
