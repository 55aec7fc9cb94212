package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"socialcore/internal/handler"
	"socialcore/internal/httputil"
	authmw "socialcore/internal/transport/http/middleware"
)

type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	ReactionHandler     *handler.ReactionHandler
	NotificationHandler *handler.NotificationHandler
	RealtimeHandler     *handler.RealtimeHandler
	Auth                tokenVerifier
}

type tokenVerifier interface {
	VerifyAccessToken(tokenString string) (int64, error)
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/realtime", cfg.RealtimeHandler.Connect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/refresh", cfg.AuthHandler.Refresh)
			r.Get("/confirm/{token}", cfg.AuthHandler.Confirm)
			r.Post("/forgot_password", cfg.AuthHandler.ForgotPassword)
			r.Post("/reset_password", cfg.AuthHandler.ResetPassword)
			r.With(authmw.RequireAuth(cfg.Auth)).Get("/me", cfg.AuthHandler.Me)
		})

		optional := authmw.OptionalAuth(cfg.Auth)
		r.With(optional).Get("/posts", cfg.PostHandler.List)
		r.With(optional).Get("/posts/{id}", cfg.PostHandler.Get)
		r.With(optional).Get("/posts/{id}/comments", cfg.CommentHandler.ListOnPost)
		r.With(optional).Get("/comments/{id}/comments", cfg.CommentHandler.ListReplies)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(cfg.Auth))

			r.Post("/posts", cfg.PostHandler.Create)
			r.Put("/posts/{id}", cfg.PostHandler.Update)
			r.Delete("/posts/{id}", cfg.PostHandler.Delete)

			r.Post("/posts/{id}/comments", cfg.CommentHandler.CreateOnPost)
			r.Post("/comments/{id}/comments", cfg.CommentHandler.CreateReply)
			r.Put("/comments/{id}", cfg.CommentHandler.Update)
			r.Delete("/comments/{id}", cfg.CommentHandler.Delete)

			r.Post("/posts/{id}/reactions", cfg.ReactionHandler.ToggleOnPost)
			r.Post("/comments/{id}/reactions", cfg.ReactionHandler.ToggleOnComment)
			r.Get("/posts/{id}/reactions", cfg.ReactionHandler.Counts)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", cfg.NotificationHandler.List)
				r.Patch("/{id}/read", cfg.NotificationHandler.MarkRead)
				r.Patch("/mark_all_read", cfg.NotificationHandler.MarkAllRead)
				r.Get("/unread_count", cfg.NotificationHandler.UnreadCount)
			})
		})
	})

	return r
}
