// Package sessionhub implements SessionHub (C3): the real-time
// transport layer multiplexing a client's topic subscriptions over a
// single websocket connection, generalized from teacher-adjacent
// gorilla/websocket client usage in the example pack onto a server-side
// hub (the teacher itself has no websocket transport).
package sessionhub

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socialcore/internal/broker"
	"socialcore/internal/model"
)

type notifier interface {
	MarkRead(ctx context.Context, actorID, notificationID int64) error
	MarkAllRead(ctx context.Context, actorID int64) error
}

// Hub owns every live session for the process. It holds no
// per-session state of its own beyond the registry, matching the
// teacher's pattern of a thin manager delegating to per-connection
// goroutines.
type Hub struct {
	broker   broker.Broker
	store    notifier
	heartbeat time.Duration
	idle      time.Duration
	sendBuf   int

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(b broker.Broker, store notifier, heartbeat, idle time.Duration, sendBuf int) *Hub {
	return &Hub{
		broker:    b,
		store:     store,
		heartbeat: heartbeat,
		idle:      idle,
		sendBuf:   sendBuf,
		sessions:  make(map[string]*Session),
	}
}

// outboundFrame is the wire shape of §6: {"topic":..., "envelope":{...}}.
type outboundFrame struct {
	Topic    model.Topic `json:"topic"`
	Envelope struct {
		Action     broker.Action    `json:"action"`
		EntityKind model.EntityKind `json:"entity_kind,omitempty"`
		Entity     json.RawMessage  `json:"entity"`
	} `json:"envelope"`
}

type inboundFrame struct {
	Command        string      `json:"command"`
	Topic          model.Topic `json:"topic"`
	NotificationID int64       `json:"notification_id"`
}

// Session is one authenticated, live connection. All writes to Conn
// go through the single writer goroutine owning send.
type Session struct {
	id      string
	actorID int64
	conn    *websocket.Conn

	hub  *Hub
	send chan []byte

	mu     sync.Mutex
	subs   map[model.Topic]broker.SubscriptionID
	closed bool

	cancel context.CancelFunc
}

// Register authenticates a connection as actorID and starts its
// reader/writer/heartbeat goroutines. The actor's own notification
// topic is subscribed implicitly, per §4.3.
func (h *Hub) Register(ctx context.Context, conn *websocket.Conn, actorID int64) *Session {
	sessCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:      uuid.NewString(),
		actorID: actorID,
		conn:    conn,
		hub:     h,
		send:    make(chan []byte, h.sendBuf),
		subs:    make(map[model.Topic]broker.SubscriptionID),
		cancel:  cancel,
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()

	s.subscribe(sessCtx, model.TopicUserNotifications(actorID))

	go s.writeLoop()
	go s.readLoop(sessCtx)
	go s.heartbeatLoop(sessCtx, h.heartbeat, h.idle)

	log.Printf("[SessionHub] Register OK: session=%s actor=%d", s.id, actorID)
	return s
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}

func (s *Session) readLoop(ctx context.Context) {
	defer s.close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		s.handleCommand(ctx, frame)
	}
}

func (s *Session) handleCommand(ctx context.Context, frame inboundFrame) {
	switch frame.Command {
	case "subscribe":
		if !s.subscriptionAllowed(frame.Topic) {
			return
		}
		s.subscribe(ctx, frame.Topic)
	case "unsubscribe":
		s.unsubscribe(frame.Topic)
	case "mark_read":
		if err := s.hub.store.MarkRead(ctx, s.actorID, frame.NotificationID); err != nil {
			log.Printf("[SessionHub] mark_read FAILED: session=%s err=%v", s.id, err)
		}
	case "mark_all_read":
		if err := s.hub.store.MarkAllRead(ctx, s.actorID); err != nil {
			log.Printf("[SessionHub] mark_all_read FAILED: session=%s err=%v", s.id, err)
		}
	}
}

// subscriptionAllowed enforces §4.3: a session may subscribe to any
// posts/post-comments/comment-replies topic, but only its own
// notification topic.
func (s *Session) subscriptionAllowed(topic model.Topic) bool {
	t := string(topic)
	switch {
	case t == string(model.TopicPosts):
		return true
	case strings.HasPrefix(t, "post:") && strings.HasSuffix(t, "/comments"):
		return true
	case strings.HasPrefix(t, "comment:") && strings.HasSuffix(t, "/replies"):
		return true
	case strings.HasPrefix(t, "user:") && strings.HasSuffix(t, "/notifications"):
		return t == string(model.TopicUserNotifications(s.actorID))
	}
	return false
}

func (s *Session) subscribe(ctx context.Context, topic model.Topic) {
	s.mu.Lock()
	if _, ok := s.subs[topic]; ok {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	id, err := s.hub.broker.Subscribe(ctx, topic, func(env broker.Envelope) {
		s.deliver(topic, env)
	})
	if err != nil {
		log.Printf("[SessionHub] subscribe FAILED: session=%s topic=%s err=%v", s.id, topic, err)
		return
	}

	s.mu.Lock()
	s.subs[topic] = id
	s.mu.Unlock()
}

func (s *Session) unsubscribe(topic model.Topic) {
	s.mu.Lock()
	id, ok := s.subs[topic]
	if ok {
		delete(s.subs, topic)
	}
	s.mu.Unlock()
	if ok {
		_ = s.hub.broker.Unsubscribe(id)
	}
}

// deliver is invoked on the broker's own goroutine per envelope;
// queuing onto send keeps this session's serial writer the only thing
// that ever touches the websocket connection.
func (s *Session) deliver(topic model.Topic, env broker.Envelope) {
	var frame outboundFrame
	frame.Topic = topic
	frame.Envelope.Action = env.Action
	frame.Envelope.EntityKind = env.EntityKind
	frame.Envelope.Entity = env.Body

	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.send <- data:
	default:
		// Backpressure: drop the oldest queued frame rather than block
		// the broker's delivery goroutine or this session's other
		// subscriptions.
		select {
		case <-s.send:
		default:
		}
		select {
		case s.send <- data:
		default:
		}
	}
}

func (s *Session) writeLoop() {
	for data := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Session) heartbeatLoop(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	missed := 0
	s.conn.SetPongHandler(func(string) error {
		missed = 0
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				s.close()
				return
			}
			missed++
			if missed > 2 {
				log.Printf("[SessionHub] heartbeat timeout: session=%s", s.id)
				s.close()
				return
			}
		}
	}
}

// close tears the session down exactly once: readLoop's defer and
// heartbeatLoop's timeout path can both race to call it.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	close(s.send)
	s.mu.Unlock()

	s.cancel()
	s.hub.unregister(s)
	for _, id := range subs {
		_ = s.hub.broker.Unsubscribe(id)
	}

	_ = s.conn.Close()
	log.Printf("[SessionHub] Unregister OK: session=%s", s.id)
}
