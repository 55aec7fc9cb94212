package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialcore/internal/auth"
	"socialcore/internal/broker"
	"socialcore/internal/config"
	"socialcore/internal/database"
	"socialcore/internal/fanout"
	"socialcore/internal/handler"
	"socialcore/internal/mail"
	"socialcore/internal/notification"
	"socialcore/internal/sessionhub"
	"socialcore/internal/store"
)

func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := broker.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("Connected to Redis at %s", cfg.RedisURL)

	redisBroker := broker.NewRedisBroker(redisClient)

	dataStore := store.New(db)

	// Wire the two commit hooks: notifications derive from the same
	// events FanOut republishes, so both attach to Store independently
	// and neither can see the other fail.
	notifEngine := notification.New(dataStore)
	dataStore.OnCommit(notifEngine.HandleEvent)

	dispatcher := fanout.New(redisBroker, dataStore)
	dataStore.OnCommit(dispatcher.HandleEvent)

	mailSender := mail.NewSMTPSender(cfg, baseURL(cfg))
	authBridge := auth.New(dataStore, mailSender, cfg)

	hub := sessionhub.New(redisBroker, dataStore, cfg.SessionHeartbeatInterval, cfg.SessionIdleTimeout, cfg.BrokerHighWaterMark)

	authHandler := handler.NewAuthHandler(authBridge, dataStore)
	postHandler := handler.NewPostHandler(dataStore)
	commentHandler := handler.NewCommentHandler(dataStore)
	reactionHandler := handler.NewReactionHandler(dataStore)
	notificationHandler := handler.NewNotificationHandler(dataStore)
	realtimeHandler := handler.NewRealtimeHandler(authBridge, hub, cfg.AllowedOrigins)

	router := NewRouter(RouterConfig{
		AuthHandler:         authHandler,
		PostHandler:         postHandler,
		CommentHandler:      commentHandler,
		ReactionHandler:     reactionHandler,
		NotificationHandler: notificationHandler,
		RealtimeHandler:     realtimeHandler,
		Auth:                authBridge,
	})

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)

	server := &stdhttp.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-shutdown:
		log.Println("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := redisBroker.Close(); err != nil {
			log.Printf("broker close error: %v", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Println("Server stopped")
		return nil
	}
}

func baseURL(cfg *config.Config) string {
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:" + cfg.ServerPort
}
