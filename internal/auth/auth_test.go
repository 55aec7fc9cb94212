package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"socialcore/internal/config"
	"socialcore/internal/model"
)

// fakeStore implements userStore entirely in memory, in the teacher's
// hand-rolled-mock style.
type fakeStore struct {
	users  map[int64]*model.User
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeStore) CreateUser(ctx context.Context, name, email, passwordHash, confirmationToken string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return nil, model.ErrEmailExists
		}
	}
	u := &model.User{ID: f.nextID, Name: name, Email: email, PasswordHash: passwordHash, ConfirmationToken: &confirmationToken}
	f.users[u.ID] = u
	f.nextID++
	return u, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (f *fakeStore) GetUserByConfirmationToken(ctx context.Context, token string) (*model.User, error) {
	for _, u := range f.users {
		if u.ConfirmationToken != nil && *u.ConfirmationToken == token {
			return u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (f *fakeStore) GetUserByResetToken(ctx context.Context, token string) (*model.User, error) {
	for _, u := range f.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			return u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (f *fakeStore) ConfirmUser(ctx context.Context, userID int64) error {
	f.users[userID].Confirmed = true
	f.users[userID].ConfirmationToken = nil
	return nil
}

func (f *fakeStore) SetResetToken(ctx context.Context, userID int64, token string) error {
	now := time.Now()
	f.users[userID].ResetToken = &token
	f.users[userID].ResetTokenSentAt = &now
	return nil
}

func (f *fakeStore) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	f.users[userID].PasswordHash = passwordHash
	f.users[userID].ResetToken = nil
	f.users[userID].ResetTokenSentAt = nil
	return nil
}

func (f *fakeStore) SetRefreshToken(ctx context.Context, userID int64, token string) error {
	if token == "" {
		f.users[userID].RefreshToken = nil
		return nil
	}
	f.users[userID].RefreshToken = &token
	return nil
}

// fakeMailer records send attempts and can be told to fail.
type fakeMailer struct {
	failConfirmation bool
	failReset        bool
	sentConfirmation int
	sentReset        int
}

func (m *fakeMailer) SendConfirmation(ctx context.Context, to, name, token string) error {
	m.sentConfirmation++
	if m.failConfirmation {
		return errors.New("smtp down")
	}
	return nil
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	m.sentReset++
	if m.failReset {
		return errors.New("smtp down")
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 2592000,
		ResetTokenMaxAge:   3600,
	}
}

func TestBridge_Register_Success(t *testing.T) {
	store := newFakeStore()
	mailer := &fakeMailer{}
	b := New(store, mailer, testConfig())

	resp, err := b.Register(context.Background(), model.RegisterRequest{Name: "alice", Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.EmailDeliveryFailed {
		t.Error("EmailDeliveryFailed should be false on successful send")
	}
	if bcrypt.CompareHashAndPassword([]byte(resp.User.PasswordHash), []byte("password123")) != nil {
		t.Error("password should be hashed as valid bcrypt")
	}
	if mailer.sentConfirmation != 1 {
		t.Errorf("sentConfirmation = %d, want 1", mailer.sentConfirmation)
	}
}

func TestBridge_Register_MailFailureDoesNotBlockAccountCreation(t *testing.T) {
	// Per §7, a confirmation-mail failure is reported back via the
	// email_delivery_failed flag but never rolls back the account.
	store := newFakeStore()
	mailer := &fakeMailer{failConfirmation: true}
	b := New(store, mailer, testConfig())

	resp, err := b.Register(context.Background(), model.RegisterRequest{Name: "bob", Email: "bob@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !resp.EmailDeliveryFailed {
		t.Error("expected EmailDeliveryFailed to be true")
	}
	if _, err := store.GetUserByEmail(context.Background(), "bob@example.com"); err != nil {
		t.Error("account should still have been created despite mail failure")
	}
}

func TestBridge_Register_RejectsWeakPassword(t *testing.T) {
	b := New(newFakeStore(), &fakeMailer{}, testConfig())
	_, err := b.Register(context.Background(), model.RegisterRequest{Name: "carl", Email: "carl@example.com", Password: "short"})
	if !errors.Is(err, model.ErrWeakPassword) {
		t.Errorf("err = %v, want ErrWeakPassword", err)
	}
}

func TestBridge_Register_RejectsInvalidEmail(t *testing.T) {
	b := New(newFakeStore(), &fakeMailer{}, testConfig())
	_, err := b.Register(context.Background(), model.RegisterRequest{Name: "carl", Email: "not-an-email", Password: "password123"})
	if !errors.Is(err, model.ErrInvalidEmail) {
		t.Errorf("err = %v, want ErrInvalidEmail", err)
	}
}

func TestBridge_LoginAndRefresh_RotatesToken(t *testing.T) {
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.users[1] = &model.User{ID: 1, Name: "dana", Email: "dana@example.com", PasswordHash: string(hash), Confirmed: true}
	store.nextID = 2

	pair, user, err := b.Login(context.Background(), model.LoginRequest{Email: "dana@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("user.ID = %d, want 1", user.ID)
	}

	refreshed, userID, err := b.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if userID != 1 {
		t.Errorf("userID = %d, want 1", userID)
	}

	// §4.8: the old refresh token is single-use. Replaying it after
	// rotation must fail even though its signature is still valid.
	if _, _, err := b.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("replaying a rotated refresh token: err = %v, want ErrInvalidCredentials", err)
	}

	// The freshly rotated token works exactly once.
	if _, _, err := b.Refresh(context.Background(), refreshed.RefreshToken); err != nil {
		t.Errorf("Refresh() with current token error = %v", err)
	}
}

func TestBridge_Login_RejectsUnconfirmedAccount(t *testing.T) {
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.users[1] = &model.User{ID: 1, Email: "eve@example.com", PasswordHash: string(hash), Confirmed: false}

	_, _, err := b.Login(context.Background(), model.LoginRequest{Email: "eve@example.com", Password: "password123"})
	if !errors.Is(err, model.ErrNotConfirmed) {
		t.Errorf("err = %v, want ErrNotConfirmed", err)
	}
}

func TestBridge_Login_RejectsWrongPassword(t *testing.T) {
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.users[1] = &model.User{ID: 1, Email: "frank@example.com", PasswordHash: string(hash), Confirmed: true}

	_, _, err := b.Login(context.Background(), model.LoginRequest{Email: "frank@example.com", Password: "wrong-password"})
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestBridge_RequestPasswordReset_DoesNotRevealUnknownEmail(t *testing.T) {
	b := New(newFakeStore(), &fakeMailer{}, testConfig())
	if err := b.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Errorf("RequestPasswordReset() for unknown email should return nil, got %v", err)
	}
}

func TestBridge_ResetPassword_RejectsExpiredToken(t *testing.T) {
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	token := "sometoken"
	stale := time.Now().Add(-2 * time.Hour)
	store.users[1] = &model.User{ID: 1, Email: "gina@example.com", ResetToken: &token, ResetTokenSentAt: &stale}

	err := b.ResetPassword(context.Background(), token, "newpassword123")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials for an expired reset token", err)
	}
}

func TestBridge_ResetPassword_RevokesExistingSession(t *testing.T) {
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	token := "sometoken"
	fresh := time.Now()
	refresh := "old-refresh"
	store.users[1] = &model.User{ID: 1, Email: "hank@example.com", ResetToken: &token, ResetTokenSentAt: &fresh, RefreshToken: &refresh}

	if err := b.ResetPassword(context.Background(), token, "newpassword123"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if store.users[1].RefreshToken != nil {
		t.Error("expected the stored refresh token to be cleared after a password reset")
	}
}

func TestBridge_VerifyAccessToken_RejectsARefreshToken(t *testing.T) {
	// §4.8: access and refresh tokens carry a kind claim precisely so
	// one can't be replayed as the other.
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	pair, err := b.issueTokenPair(context.Background(), 1)
	if err != nil {
		t.Fatalf("issueTokenPair() error = %v", err)
	}

	if _, err := b.VerifyAccessToken(pair.RefreshToken); err == nil {
		t.Error("expected VerifyAccessToken to reject a refresh token")
	}
}

func TestBridge_Refresh_RejectsAnAccessToken(t *testing.T) {
	store := newFakeStore()
	b := New(store, &fakeMailer{}, testConfig())

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.users[1] = &model.User{ID: 1, Email: "ivy@example.com", PasswordHash: string(hash), Confirmed: true}

	pair, _, err := b.Login(context.Background(), model.LoginRequest{Email: "ivy@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, _, err := b.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("Refresh() with an access token: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestBridge_VerifyAccessToken_RejectsForeignSecret(t *testing.T) {
	store := newFakeStore()
	cfg := testConfig()
	b := New(store, &fakeMailer{}, cfg)

	pair, err := b.issueTokenPair(context.Background(), 1)
	if err != nil {
		t.Fatalf("issueTokenPair() error = %v", err)
	}

	forged := New(store, &fakeMailer{}, &config.Config{JWTSecret: "different-secret", AccessTokenMaxAge: 900, RefreshTokenMaxAge: 2592000})
	if _, err := forged.VerifyAccessToken(pair.AccessToken); err == nil {
		t.Error("expected verification under a different secret to fail")
	}
}
