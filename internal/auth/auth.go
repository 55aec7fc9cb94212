// Package auth implements AuthBridge (C8): registration, confirmation,
// login, refresh rotation and password reset, generalizing the
// teacher's JWT-access + rotating-refresh-token scheme onto a single
// stored refresh copy per user (spec.md §3/§4.8) instead of a
// refresh_tokens family table.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"socialcore/internal/config"
	"socialcore/internal/model"
)

const minPasswordLength = 8

// Access and refresh tokens are otherwise structurally identical JWTs
// signed with the same secret; the kind claim is what stops a
// refresh token being replayed as an access token and vice versa.
const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

type userStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash, confirmationToken string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByConfirmationToken(ctx context.Context, token string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*model.User, error)
	ConfirmUser(ctx context.Context, userID int64) error
	SetResetToken(ctx context.Context, userID int64, token string) error
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
	SetRefreshToken(ctx context.Context, userID int64, token string) error
}

type mailer interface {
	SendConfirmation(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

type Bridge struct {
	store  userStore
	mail   mailer
	config *config.Config
}

func New(store userStore, mail mailer, cfg *config.Config) *Bridge {
	return &Bridge{store: store, mail: mail, config: cfg}
}

// TokenPair is the response body for login/refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Register creates an unconfirmed user and sends a confirmation email.
// Per §7, a mail delivery failure is reported back but never rolls
// back the created account.
func (b *Bridge) Register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, model.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	confirmationToken, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate confirmation token: %w", err)
	}

	user, err := b.store.CreateUser(ctx, req.Name, req.Email, string(hash), confirmationToken)
	if err != nil {
		return nil, err
	}

	resp := &model.RegisterResponse{User: user}
	if err := b.mail.SendConfirmation(ctx, user.Email, user.Name, confirmationToken); err != nil {
		resp.EmailDeliveryFailed = true
	}
	return resp, nil
}

// Confirm consumes a confirmation token.
func (b *Bridge) Confirm(ctx context.Context, token string) error {
	user, err := b.store.GetUserByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.ErrInvalidCredentials
		}
		return err
	}
	return b.store.ConfirmUser(ctx, user.ID)
}

// Login verifies credentials and issues a fresh token pair.
func (b *Bridge) Login(ctx context.Context, req model.LoginRequest) (*TokenPair, *model.User, error) {
	user, err := b.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, nil, model.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, nil, model.ErrInvalidCredentials
	}
	if !user.Confirmed {
		return nil, nil, model.ErrNotConfirmed
	}

	pair, err := b.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh validates refreshToken as both a well-formed, unexpired JWT
// and the single live copy stored on the user row, then rotates it.
// Per §8, refresh is single-use: a stale or mismatched token is
// rejected even if its signature and expiry are otherwise valid.
func (b *Bridge) Refresh(ctx context.Context, refreshToken string) (*TokenPair, int64, error) {
	userID, err := b.parseToken(refreshToken, tokenKindRefresh)
	if err != nil {
		return nil, 0, model.ErrInvalidCredentials
	}

	user, err := b.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, 0, model.ErrInvalidCredentials
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, 0, model.ErrInvalidCredentials
	}

	pair, err := b.issueTokenPair(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return pair, userID, nil
}

// Logout revokes the stored refresh copy so the last issued refresh
// token can no longer be rotated.
func (b *Bridge) Logout(ctx context.Context, userID int64) error {
	return b.store.SetRefreshToken(ctx, userID, "")
}

// RequestPasswordReset returns nil for an unknown email, so the
// endpoint can't be used to enumerate accounts. Store failures and a
// reset email failure are returned to the caller, since there is no
// other way to complete the flow.
func (b *Bridge) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := b.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := b.store.SetResetToken(ctx, user.ID, token); err != nil {
		return err
	}
	return b.mail.SendPasswordReset(ctx, user.Email, user.Name, token)
}

// ResetPassword consumes an unexpired reset token, sets the new
// password and revokes the stored refresh copy. It sends no email.
func (b *Bridge) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return model.ErrWeakPassword
	}
	user, err := b.store.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.ErrInvalidCredentials
		}
		return err
	}
	if user.ResetTokenSentAt == nil ||
		time.Since(*user.ResetTokenSentAt) > time.Duration(b.config.ResetTokenMaxAge)*time.Second {
		return model.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := b.store.ResetPassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	// A completed reset invalidates any outstanding session, matching
	// the "revocation possible" requirement for the stored refresh copy.
	return b.store.SetRefreshToken(ctx, user.ID, "")
}

// VerifyAccessToken parses and validates an access token, returning
// the authenticated user id. Used by the HTTP auth middleware.
func (b *Bridge) VerifyAccessToken(tokenString string) (int64, error) {
	return b.parseToken(tokenString, tokenKindAccess)
}

func (b *Bridge) issueTokenPair(ctx context.Context, userID int64) (*TokenPair, error) {
	access, err := b.signToken(userID, time.Duration(b.config.AccessTokenMaxAge)*time.Second, tokenKindAccess)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := b.signToken(userID, time.Duration(b.config.RefreshTokenMaxAge)*time.Second, tokenKindRefresh)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := b.store.SetRefreshToken(ctx, userID, refresh); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    b.config.AccessTokenMaxAge,
	}, nil
}

func (b *Bridge) signToken(userID int64, ttl time.Duration, kind string) (string, error) {
	// A random jti keeps two tokens for the same user signed within the
	// same second distinct, so a rotated refresh token never equals the
	// stored copy it replaced.
	jti, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"kind":    kind,
		"jti":     jti,
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(b.config.JWTSecret))
}

func (b *Bridge) parseToken(tokenString, wantKind string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(b.config.JWTSecret), nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	if kind, _ := claims["kind"].(string); kind != wantKind {
		return 0, jwt.ErrTokenInvalidClaims
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return int64(userIDFloat), nil
}

func validateName(name string) error {
	if len(name) < model.NameMinLength || len(name) > model.NameMaxLength {
		return model.ErrInvalidName
	}
	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return model.ErrInvalidEmail
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
