package model

import (
	"errors"
	"time"
)

// User is an account on the platform.
type User struct {
	ID                  int64      `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Bio                 *string    `db:"bio" json:"bio"`
	Confirmed           bool       `db:"confirmed" json:"confirmed"`
	ConfirmationToken   *string    `db:"confirmation_token" json:"-"`
	ResetToken          *string    `db:"reset_token" json:"-"`
	ResetTokenSentAt    *time.Time `db:"reset_token_sent_at" json:"-"`
	RefreshToken        *string    `db:"refresh_token" json:"-"`
	RefreshTokenSentAt  *time.Time `db:"refresh_token_sent_at" json:"-"`
	PostsCount          int        `db:"posts_count" json:"posts_count"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// UserSummary is the trimmed-down representation embedded in joined
// author/actor fields elsewhere.
type UserSummary struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse echoes the email-delivery outcome per the §7
// propagation policy: register never fails because mail delivery did.
type RegisterResponse struct {
	User                *User `json:"user"`
	EmailDeliveryFailed bool  `json:"email_delivery_failed,omitempty"`
}

const (
	NameMinLength = 1
	NameMaxLength = 80
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailExists       = errors.New("email already registered")
	ErrNameExists        = errors.New("name already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed      = errors.New("account not confirmed")
	ErrInvalidName       = errors.New("name must be between 1 and 80 characters")
	ErrInvalidEmail      = errors.New("email is invalid")
	ErrWeakPassword      = errors.New("password does not meet minimum requirements")
)
