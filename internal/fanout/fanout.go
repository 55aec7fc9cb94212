// Package fanout implements FanOut (C4): the deterministic table of
// §4.4 translating Store commit events into Broker publishes. It
// holds no state of its own; entity relations it needs beyond what
// the Event already carries are fetched fresh from Store.
package fanout

import (
	"context"
	"log"
	"time"

	"socialcore/internal/broker"
	"socialcore/internal/model"
)

type entityReader interface {
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	GetComment(ctx context.Context, id int64) (*model.Comment, error)
}

type publisher interface {
	Publish(ctx context.Context, topic model.Topic, env broker.Envelope) error
}

type Dispatcher struct {
	broker publisher
	store  entityReader
}

func New(b publisher, s entityReader) *Dispatcher {
	return &Dispatcher{broker: b, store: s}
}

type idBody struct {
	ID int64 `json:"id"`
}

// HandleEvent is registered as a Store.OnCommit hook.
func (d *Dispatcher) HandleEvent(ev model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch ev.Name {
	case model.EventPostCreated:
		d.publish(ctx, model.TopicPosts, broker.ActionNew, model.KindPost, ev.Post)

	case model.EventPostUpdated:
		d.publish(ctx, model.TopicPosts, broker.ActionUpdate, model.KindPost, ev.Post)
		d.publish(ctx, model.TopicPostComments(ev.Post.ID), broker.ActionUpdate, model.KindPost, ev.Post)

	case model.EventPostDeleted:
		d.publish(ctx, model.TopicPosts, broker.ActionDelete, model.KindPost, idBody{ev.Post.ID})
		for _, id := range ev.DeletedIDs {
			d.publish(ctx, model.TopicPostComments(ev.Post.ID), broker.ActionDelete, model.KindComment, idBody{id})
		}

	case model.EventCommentCreated, model.EventCommentUpdated:
		action := broker.ActionNew
		if ev.Name == model.EventCommentUpdated {
			action = broker.ActionUpdate
		}
		d.publish(ctx, model.TopicPostComments(ev.RootPostID), action, model.KindComment, ev.Comment)
		if ev.CommentableKind == model.KindComment {
			d.publish(ctx, model.TopicCommentReplies(ev.CommentableID), action, model.KindComment, ev.Comment)
		}
		d.refreshPost(ctx, ev.RootPostID)

	case model.EventCommentDeleted:
		for _, id := range ev.DeletedIDs {
			d.publish(ctx, model.TopicPostComments(ev.RootPostID), broker.ActionDelete, model.KindComment, idBody{id})
		}
		if ev.CommentableKind == model.KindComment {
			d.publish(ctx, model.TopicCommentReplies(ev.CommentableID), broker.ActionDelete, model.KindComment, idBody{ev.Comment.ID})
		}
		d.refreshPost(ctx, ev.RootPostID)

	case model.EventReactionAdded, model.EventReactionChanged, model.EventReactionRemoved:
		d.onReaction(ctx, ev)

	case model.EventNotificationCreated:
		n := ev.Notification
		d.publish(ctx, model.TopicUserNotifications(n.RecipientID), broker.ActionNotificationNew, model.KindNotification, n)

	case model.EventNotificationRead:
		n := ev.Notification
		d.publish(ctx, model.TopicUserNotifications(n.RecipientID), broker.ActionNotificationRead, model.KindNotification, idBody{n.ID})

	case model.EventNotificationAllRead:
		d.publish(ctx, model.TopicUserNotifications(ev.UserID), broker.ActionNotificationAllRead, model.KindNotification, struct {
			All bool `json:"all"`
		}{true})
	}
}

func (d *Dispatcher) onReaction(ctx context.Context, ev model.Event) {
	target := model.Ref{Kind: ev.CommentableKind, ID: ev.CommentableID}
	switch target.Kind {
	case model.KindPost:
		post, err := d.store.GetPost(ctx, target.ID)
		if err != nil {
			log.Printf("[FanOut] reaction on post lookup FAILED: post=%d err=%v", target.ID, err)
			return
		}
		d.publish(ctx, model.TopicPosts, broker.ActionReactionUpdate, model.KindPost, post)
	case model.KindComment:
		comment, err := d.store.GetComment(ctx, target.ID)
		if err != nil {
			log.Printf("[FanOut] reaction on comment lookup FAILED: comment=%d err=%v", target.ID, err)
			return
		}
		d.publish(ctx, model.TopicPostComments(comment.RootPostID), broker.ActionReactionUpdate, model.KindComment, comment)
	}
}

func (d *Dispatcher) refreshPost(ctx context.Context, postID int64) {
	post, err := d.store.GetPost(ctx, postID)
	if err != nil {
		log.Printf("[FanOut] refresh post view FAILED: post=%d err=%v", postID, err)
		return
	}
	d.publish(ctx, model.TopicPosts, broker.ActionUpdate, model.KindPost, post)
}

func (d *Dispatcher) publish(ctx context.Context, topic model.Topic, action broker.Action, kind model.EntityKind, body any) {
	env, err := broker.NewEnvelope(action, kind, body)
	if err != nil {
		log.Printf("[FanOut] build envelope FAILED: topic=%s err=%v", topic, err)
		return
	}
	if err := d.broker.Publish(ctx, topic, env); err != nil {
		log.Printf("[FanOut] Publish FAILED: topic=%s err=%v", topic, err)
	}
}
