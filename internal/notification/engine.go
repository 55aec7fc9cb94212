// Package notification implements NotificationEngine (C7): derivation
// of Notification rows from domain events, mention extraction, and
// self-action suppression.
package notification

import (
	"context"
	"log"
	"time"

	"socialcore/internal/model"
)

// notifier is the subset of *store.Store the engine needs. Declared
// as an interface so tests can supply a fake without importing store.
type notifier interface {
	CreateNotification(ctx context.Context, recipientID, actorID int64, kind model.NotificationKind, subject model.Ref) (*model.Notification, error)
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	GetComment(ctx context.Context, id int64) (*model.Comment, error)
	GetUserByNameOrEmail(ctx context.Context, handle string) (*model.User, error)
}

type Engine struct {
	store notifier
}

func New(store notifier) *Engine {
	return &Engine{store: store}
}

// HandleEvent is registered as a Store.OnCommit hook. It runs with
// its own bounded deadline per §5: a missed deadline drops the
// notification but never touches the originating commit.
func (e *Engine) HandleEvent(ev model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch ev.Name {
	case model.EventCommentCreated:
		e.onCommentCreated(ctx, ev.Comment)
	case model.EventCommentUpdated:
		e.deriveMentions(ctx, ev.Comment.Description, ev.Comment.AuthorID,
			model.Ref{Kind: model.KindComment, ID: ev.Comment.ID})
	case model.EventPostCreated, model.EventPostUpdated:
		e.deriveMentions(ctx, ev.Post.Title+"\n"+ev.Post.Description, ev.Post.AuthorID,
			model.Ref{Kind: model.KindPost, ID: ev.Post.ID})
	case model.EventReactionAdded:
		e.onReactionAdded(ctx, ev.Reaction)
	}
}

func (e *Engine) onCommentCreated(ctx context.Context, c *model.Comment) {
	parent := c.Commentable()
	subject := model.Ref{Kind: model.KindComment, ID: c.ID}

	switch parent.Kind {
	case model.KindPost:
		post, err := e.store.GetPost(ctx, parent.ID)
		if err != nil {
			log.Printf("[NotificationEngine] comment_on_post lookup FAILED: post=%d err=%v", parent.ID, err)
			return
		}
		e.create(ctx, post.AuthorID, c.AuthorID, model.NotificationCommentOnPost, subject)
	case model.KindComment:
		parentComment, err := e.store.GetComment(ctx, parent.ID)
		if err != nil {
			log.Printf("[NotificationEngine] reply_to_comment lookup FAILED: comment=%d err=%v", parent.ID, err)
			return
		}
		e.create(ctx, parentComment.AuthorID, c.AuthorID, model.NotificationReplyToComment, subject)
	}

	e.deriveMentions(ctx, c.Description, c.AuthorID, subject)
}

func (e *Engine) onReactionAdded(ctx context.Context, r *model.Reaction) {
	subject := model.Ref{Kind: model.KindReaction, ID: r.ID}

	switch r.TargetKind {
	case model.KindPost:
		post, err := e.store.GetPost(ctx, r.TargetID)
		if err != nil {
			log.Printf("[NotificationEngine] reaction_on_post lookup FAILED: post=%d err=%v", r.TargetID, err)
			return
		}
		e.create(ctx, post.AuthorID, r.ActorID, model.NotificationReactionOnPost, subject)
	case model.KindComment:
		comment, err := e.store.GetComment(ctx, r.TargetID)
		if err != nil {
			log.Printf("[NotificationEngine] reaction_on_comment lookup FAILED: comment=%d err=%v", r.TargetID, err)
			return
		}
		e.create(ctx, comment.AuthorID, r.ActorID, model.NotificationReactionOnComment, subject)
	}
}

// deriveMentions scans text for @handles, resolves each against
// User.name/email, and notifies every distinct resolved user once.
func (e *Engine) deriveMentions(ctx context.Context, text string, actorID int64, subject model.Ref) {
	handles := extractMentionHandles(text)
	if len(handles) == 0 {
		return
	}

	notified := make(map[int64]struct{}, len(handles))
	for _, handle := range handles {
		user, err := e.store.GetUserByNameOrEmail(ctx, handle)
		if err != nil {
			continue // unresolved handles are ignored, per §4.7
		}
		if user.ID == actorID {
			continue // self-mentions dropped
		}
		if _, ok := notified[user.ID]; ok {
			continue
		}
		notified[user.ID] = struct{}{}
		e.create(ctx, user.ID, actorID, model.NotificationMention, subject)
	}
}

func (e *Engine) create(ctx context.Context, recipientID, actorID int64, kind model.NotificationKind, subject model.Ref) {
	if _, err := e.store.CreateNotification(ctx, recipientID, actorID, kind, subject); err != nil {
		log.Printf("[NotificationEngine] CreateNotification FAILED: recipient=%d kind=%s err=%v", recipientID, kind, err)
	}
}
