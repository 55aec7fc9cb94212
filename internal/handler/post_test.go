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
	"socialcore/internal/store"
	authmw "socialcore/internal/transport/http/middleware"
)

type fakePostStore struct {
	createdBy int64
	created   *model.Post
	createErr error

	gotID  int64
	getErr error
	post   *model.Post

	updateErr error
	deleteErr error

	listFilter store.ListPostsFilter
}

func (f *fakePostStore) CreatePost(ctx context.Context, authorID int64, draft model.CreatePostDraft) (*model.Post, error) {
	f.createdBy = authorID
	return f.created, f.createErr
}

func (f *fakePostStore) UpdatePost(ctx context.Context, actorID, postID int64, patch model.UpdatePostPatch) (*model.Post, error) {
	return f.post, f.updateErr
}

func (f *fakePostStore) DeletePost(ctx context.Context, actorID, postID int64) error {
	return f.deleteErr
}

func (f *fakePostStore) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	f.gotID = postID
	return f.post, f.getErr
}

func (f *fakePostStore) ListPosts(ctx context.Context, filter store.ListPostsFilter) ([]model.Post, model.PageMeta, error) {
	f.listFilter = filter
	return nil, model.PageMeta{}, nil
}

func TestPostHandler_Create_UsesAuthenticatedActorAsAuthor(t *testing.T) {
	fs := &fakePostStore{created: &model.Post{ID: 1, AuthorID: 42}}
	h := NewPostHandler(fs)

	r := chi.NewRouter()
	r.With(authmw.RequireAuth(fakeVerifier{userID: 42})).Post("/posts", h.Create)

	req := newAuthedRequest(http.MethodPost, "/posts", []byte(`{"title":"hi","description":"world"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 42, fs.createdBy)
}

func TestPostHandler_Get_NotFoundMapsTo404(t *testing.T) {
	fs := &fakePostStore{getErr: model.ErrPostNotFound}
	h := NewPostHandler(fs)

	r := chi.NewRouter()
	r.Get("/posts/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/posts/404", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 404, fs.gotID)
}

func TestPostHandler_Delete_ForbiddenWhenNotAuthor(t *testing.T) {
	fs := &fakePostStore{deleteErr: model.ErrNotPostAuthor}
	h := NewPostHandler(fs)

	r := chi.NewRouter()
	r.With(authmw.RequireAuth(fakeVerifier{userID: 7})).Delete("/posts/{id}", h.Delete)

	req := newAuthedRequest(http.MethodDelete, "/posts/1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostHandler_List_ParsesQueryFilters(t *testing.T) {
	fs := &fakePostStore{}
	h := NewPostHandler(fs)

	r := chi.NewRouter()
	r.Get("/posts", h.List)

	req := httptest.NewRequest(http.MethodGet, "/posts?search=hello&user_id=9&tag_ids[]=1&tag_ids[]=2&page=2&per_page=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", fs.listFilter.Search)
	require.NotNil(t, fs.listFilter.AuthorID)
	assert.EqualValues(t, 9, *fs.listFilter.AuthorID)
	assert.Equal(t, []int64{1, 2}, fs.listFilter.TagIDs)
	assert.Equal(t, 2, fs.listFilter.Page)
	assert.Equal(t, 10, fs.listFilter.PerPage)
}

func TestPostHandler_Create_RejectsMissingAuth(t *testing.T) {
	fs := &fakePostStore{}
	h := NewPostHandler(fs)

	r := chi.NewRouter()
	r.Post("/posts", h.Create)

	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
