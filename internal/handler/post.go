package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"socialcore/internal/httputil"
	"socialcore/internal/model"
	"socialcore/internal/store"
	authmw "socialcore/internal/transport/http/middleware"
)

type postStore interface {
	CreatePost(ctx context.Context, authorID int64, draft model.CreatePostDraft) (*model.Post, error)
	UpdatePost(ctx context.Context, actorID, postID int64, patch model.UpdatePostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, actorID, postID int64) error
	GetPost(ctx context.Context, postID int64) (*model.Post, error)
	ListPosts(ctx context.Context, f store.ListPostsFilter) ([]model.Post, model.PageMeta, error)
}

type PostHandler struct {
	store postStore
}

func NewPostHandler(store postStore) *PostHandler {
	return &PostHandler{store: store}
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	draft := model.CreatePostDraft{
		Title:       req.Title,
		Description: req.Description,
		ImageRef:    req.ImageRef,
		TagNames:    req.Tags,
	}
	post, err := h.store.CreatePost(r.Context(), userID, draft)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "post not found")
		return
	}
	var req model.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}
	patch := model.UpdatePostPatch{
		Title:       req.Title,
		Description: req.Description,
		ImageRef:    req.ImageRef,
		TagNames:    req.Tags,
	}
	post, err := h.store.UpdatePost(r.Context(), userID, postID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "post not found")
		return
	}
	if err := h.store.DeletePost(r.Context(), userID, postID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "post not found")
		return
	}
	post, err := h.store.GetPost(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	f := store.ListPostsFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Page:    page,
		PerPage: perPage,
	}
	if raw := q.Get("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.AuthorID = &id
		}
	}
	for _, raw := range q["tag_ids[]"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.TagIDs = append(f.TagIDs, id)
		}
	}

	posts, meta, err := h.store.ListPosts(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.PostListResponse{Posts: posts, Meta: meta})
}
