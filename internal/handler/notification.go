package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialcore/internal/httputil"
	"socialcore/internal/model"
	authmw "socialcore/internal/transport/http/middleware"
)

type notificationStore interface {
	ListNotifications(ctx context.Context, recipientID int64, onlyUnread, onlyRead bool, page, perPage int) ([]model.Notification, model.PageMeta, error)
	MarkRead(ctx context.Context, actorID, notificationID int64) error
	MarkAllRead(ctx context.Context, actorID int64) error
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
}

type NotificationHandler struct {
	store notificationStore
}

func NewNotificationHandler(store notificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	onlyUnread, _ := strconv.ParseBool(q.Get("unread"))
	onlyRead, _ := strconv.ParseBool(q.Get("read"))

	notifications, meta, err := h.store.ListNotifications(r.Context(), userID, onlyUnread, onlyRead, page, perPage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.NotificationListResponse{Notifications: notifications, Meta: meta})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "notification not found")
		return
	}
	if err := h.store.MarkRead(r.Context(), userID, notificationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	if err := h.store.MarkAllRead(r.Context(), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "missing authentication token")
		return
	}
	count, err := h.store.UnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.UnreadCountResponse{UnreadCount: count})
}
