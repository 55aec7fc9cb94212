package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialcore/internal/httputil"
	"socialcore/internal/model"
	authmw "socialcore/internal/transport/http/middleware"
)

type reactionStore interface {
	ToggleReaction(ctx context.Context, actorID int64, target model.Ref, kind model.ReactionKind) (model.ToggleResult, error)
	ReactionCounts(ctx context.Context, target model.Ref) (model.ReactionCountsResponse, error)
}

type ReactionHandler struct {
	store reactionStore
}

func NewReactionHandler(store reactionStore) *ReactionHandler {
	return &ReactionHandler{store: store}
}

// ToggleOnPost handles POST /posts/:id/reactions.
func (h *ReactionHandler) ToggleOnPost(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.KindPost)
}

// ToggleOnComment handles POST /comments/:id/reactions.
func (h *ReactionHandler) ToggleOnComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.KindComment)
}

func (h *ReactionHandler) toggle(w http.ResponseWriter, r *http.Request, kind model.EntityKind) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "target not found")
		return
	}
	var req model.ToggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, model.NewValidationError("body", "invalid JSON"))
		return
	}

	result, err := h.store.ToggleReaction(r.Context(), userID, model.Ref{Kind: kind, ID: targetID}, req.Kind)
	// §7: a uniqueness-race Conflict is recovered locally by retrying
	// the toggle once against the now-current row.
	if err != nil && errors.Is(err, model.ErrReactionConflict) {
		result, err = h.store.ToggleReaction(r.Context(), userID, model.Ref{Kind: kind, ID: targetID}, req.Kind)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Counts handles GET /posts/:id/reactions.
func (h *ReactionHandler) Counts(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "post not found")
		return
	}
	counts, err := h.store.ReactionCounts(r.Context(), model.Ref{Kind: model.KindPost, ID: postID})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}
