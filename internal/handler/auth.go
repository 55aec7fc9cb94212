// Package handler adapts Store/AuthBridge operations to the HTTP
// surface of §6.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"socialcore/internal/auth"
	"socialcore/internal/httputil"
	"socialcore/internal/model"
	authmw "socialcore/internal/transport/http/middleware"
)

type authBridge interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error)
	Confirm(ctx context.Context, token string) error
	Login(ctx context.Context, req model.LoginRequest) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, int64, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type userReader interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

type AuthHandler struct {
	auth  authBridge
	users userReader
}

func NewAuthHandler(auth authBridge, users userReader) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	pair, user, err := h.auth.Login(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tokens": pair, "user": user})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	pair, _, err := h.auth.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.auth.Confirm(r.Context(), token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), body.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.auth.ResetPassword(r.Context(), body.Token, body.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
