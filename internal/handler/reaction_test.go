package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcore/internal/model"
	authmw "socialcore/internal/transport/http/middleware"
)

type fakeReactionStore struct {
	toggleCalls int
	failFirst   bool
	result      model.ToggleResult
	err         error
}

func (f *fakeReactionStore) ToggleReaction(ctx context.Context, actorID int64, target model.Ref, kind model.ReactionKind) (model.ToggleResult, error) {
	f.toggleCalls++
	if f.failFirst && f.toggleCalls == 1 {
		return model.ToggleResult{}, model.ErrReactionConflict
	}
	return f.result, f.err
}

func (f *fakeReactionStore) ReactionCounts(ctx context.Context, target model.Ref) (model.ReactionCountsResponse, error) {
	return model.ReactionCountsResponse{Counts: map[model.ReactionKind]int{model.ReactionLike: 3}, Total: 3}, nil
}

type fakeVerifier struct{ userID int64 }

func (f fakeVerifier) VerifyAccessToken(tokenString string) (int64, error) {
	return f.userID, nil
}

func newAuthedRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer whatever")
	return req
}

func TestReactionHandler_ToggleOnPost_RetriesOnceAfterConflict(t *testing.T) {
	store := &fakeReactionStore{
		failFirst: true,
		result:    model.ToggleResult{Action: model.ToggleAdded, Reaction: &model.Reaction{ID: 1, Kind: model.ReactionLike}},
	}
	h := NewReactionHandler(store)

	r := chi.NewRouter()
	r.With(authmw.RequireAuth(fakeVerifier{userID: 42})).Post("/posts/{id}/reactions", h.ToggleOnPost)

	req := newAuthedRequest(http.MethodPost, "/posts/9/reactions", []byte(`{"kind":"like"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, store.toggleCalls, "a reaction conflict must be retried exactly once")
}

func TestReactionHandler_ToggleOnPost_PropagatesNonConflictErrorWithoutRetry(t *testing.T) {
	store := &fakeReactionStore{err: model.ErrInvalidReactionKind}
	h := NewReactionHandler(store)

	r := chi.NewRouter()
	r.With(authmw.RequireAuth(fakeVerifier{userID: 42})).Post("/posts/{id}/reactions", h.ToggleOnPost)

	req := newAuthedRequest(http.MethodPost, "/posts/9/reactions", []byte(`{"kind":"bogus"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1, store.toggleCalls, "a non-conflict error must not be retried")
}

func TestReactionHandler_ToggleOnPost_RejectsMissingAuth(t *testing.T) {
	store := &fakeReactionStore{}
	h := NewReactionHandler(store)

	r := chi.NewRouter()
	r.With(authmw.RequireAuth(fakeVerifier{userID: 42})).Post("/posts/{id}/reactions", h.ToggleOnPost)

	req := httptest.NewRequest(http.MethodPost, "/posts/9/reactions", bytes.NewReader([]byte(`{"kind":"like"}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, store.toggleCalls)
}

func TestReactionHandler_Counts_DoesNotRequireAuth(t *testing.T) {
	store := &fakeReactionStore{}
	h := NewReactionHandler(store)

	r := chi.NewRouter()
	r.Get("/posts/{id}/reactions", h.Counts)

	req := httptest.NewRequest(http.MethodGet, "/posts/9/reactions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":3`)
}
