package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"socialcore/internal/httputil"
	"socialcore/internal/sessionhub"
)

type tokenVerifier interface {
	VerifyAccessToken(tokenString string) (int64, error)
}

type sessionRegistrar interface {
	Register(ctx context.Context, conn *websocket.Conn, actorID int64) *sessionhub.Session
}

// RealtimeHandler upgrades the single bidirectional connection of §6,
// authenticated by the access token attached to the connect URL
// (mirroring how the teacher's REST middleware falls back to a cookie
// when no Authorization header is present on a browser-driven request).
type RealtimeHandler struct {
	auth     tokenVerifier
	hub      sessionRegistrar
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(auth tokenVerifier, hub sessionRegistrar, allowedOrigins []string) *RealtimeHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &RealtimeHandler{
		auth: auth,
		hub:  hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	if token == "" {
		httputil.WriteUnauthorized(w, "missing access_token query parameter")
		return
	}
	actorID, err := h.auth.VerifyAccessToken(token)
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// A fresh background context: r.Context() is canceled the instant
	// this handler returns, which happens immediately after Upgrade
	// hands the connection off to the session's own goroutines.
	h.hub.Register(context.Background(), conn, actorID)
}
