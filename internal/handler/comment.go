package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialcore/internal/httputil"
	"socialcore/internal/model"
	authmw "socialcore/internal/transport/http/middleware"
)

type commentStore interface {
	CreateComment(ctx context.Context, authorID int64, parent model.Ref, description string) (*model.Comment, error)
	UpdateComment(ctx context.Context, actorID, commentID int64, description string) (*model.Comment, error)
	DeleteComment(ctx context.Context, actorID, commentID int64) error
	GetComment(ctx context.Context, commentID int64) (*model.Comment, error)
	ListComments(ctx context.Context, parent model.Ref, page, perPage int) ([]model.Comment, model.PageMeta, error)
}

type CommentHandler struct {
	store commentStore
}

func NewCommentHandler(store commentStore) *CommentHandler {
	return &CommentHandler{store: store}
}

func (h *CommentHandler) decodeDescription(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return "", false
	}
	return req.Description, true
}

// CreateOnPost handles POST /posts/:id/comments.
func (h *CommentHandler) CreateOnPost(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, model.KindPost, "id")
}

// CreateReply handles POST /comments/:id/comments.
func (h *CommentHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, model.KindComment, "id")
}

func (h *CommentHandler) create(w http.ResponseWriter, r *http.Request, kind model.EntityKind, param string) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	parentID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "parent not found")
		return
	}
	description, ok := h.decodeDescription(w, r)
	if !ok {
		return
	}
	comment, err := h.store.CreateComment(r.Context(), userID, model.Ref{Kind: kind, ID: parentID}, description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "comment not found")
		return
	}
	description, ok := h.decodeDescription(w, r)
	if !ok {
		return
	}
	comment, err := h.store.UpdateComment(r.Context(), userID, commentID, description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "comment not found")
		return
	}
	if err := h.store.DeleteComment(r.Context(), userID, commentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListOnPost handles GET /posts/:id/comments.
func (h *CommentHandler) ListOnPost(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "post not found")
		return
	}
	h.list(w, r, model.Ref{Kind: model.KindPost, ID: postID})
}

// ListReplies handles GET /comments/:id/comments.
func (h *CommentHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "comment not found")
		return
	}
	h.list(w, r, model.Ref{Kind: model.KindComment, ID: commentID})
}

func (h *CommentHandler) list(w http.ResponseWriter, r *http.Request, parent model.Ref) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	comments, meta, err := h.store.ListComments(r.Context(), parent, page, perPage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.CommentListResponse{Comments: comments, Meta: meta})
}
