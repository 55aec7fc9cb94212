package notification

import (
	"context"
	"testing"

	"socialcore/internal/model"
)

// fakeNotifier implements notifier without touching a database: it
// serves lookups from maps and records every CreateNotification call.
type fakeNotifier struct {
	posts    map[int64]*model.Post
	comments map[int64]*model.Comment
	users    map[string]*model.User

	created []createCall
}

type createCall struct {
	RecipientID int64
	ActorID     int64
	Kind        model.NotificationKind
	Subject     model.Ref
}

func (f *fakeNotifier) CreateNotification(ctx context.Context, recipientID, actorID int64, kind model.NotificationKind, subject model.Ref) (*model.Notification, error) {
	f.created = append(f.created, createCall{recipientID, actorID, kind, subject})
	return &model.Notification{}, nil
}

func (f *fakeNotifier) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return nil, model.ErrPostNotFound
}

func (f *fakeNotifier) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	if c, ok := f.comments[id]; ok {
		return c, nil
	}
	return nil, model.ErrCommentNotFound
}

func (f *fakeNotifier) GetUserByNameOrEmail(ctx context.Context, handle string) (*model.User, error) {
	if u, ok := f.users[handle]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func TestEngine_CommentOnPost_NotifiesAuthor(t *testing.T) {
	fake := &fakeNotifier{
		posts: map[int64]*model.Post{1: {ID: 1, AuthorID: 10}},
	}
	e := New(fake)

	comment := &model.Comment{ID: 5, AuthorID: 20, CommentableKind: model.KindPost, CommentableID: 1, Description: "nice post"}
	e.HandleEvent(model.Event{Name: model.EventCommentCreated, Comment: comment})

	if len(fake.created) != 1 {
		t.Fatalf("got %d notifications, want 1", len(fake.created))
	}
	got := fake.created[0]
	if got.RecipientID != 10 || got.ActorID != 20 || got.Kind != model.NotificationCommentOnPost {
		t.Errorf("unexpected notification: %+v", got)
	}
}

func TestEngine_CommentOnPost_SkipsSelfMentionButNotifiesAuthor(t *testing.T) {
	// The engine drops a mention that resolves to the actor, but still
	// hands the comment_on_post derivation to the store even though the
	// post author is the actor; Store.CreateNotification is what drops
	// that self-action row.
	fake := &fakeNotifier{
		posts: map[int64]*model.Post{1: {ID: 1, AuthorID: 20}},
		users: map[string]*model.User{"bob": {ID: 20, Name: "bob"}},
	}
	e := New(fake)

	comment := &model.Comment{ID: 5, AuthorID: 20, CommentableKind: model.KindPost, CommentableID: 1, Description: "self comment @bob"}
	e.HandleEvent(model.Event{Name: model.EventCommentCreated, Comment: comment})

	if len(fake.created) != 1 {
		t.Fatalf("got %d notifications, want 1", len(fake.created))
	}
	if fake.created[0].Kind != model.NotificationCommentOnPost {
		t.Errorf("kind = %s, want comment_on_post", fake.created[0].Kind)
	}
}

func TestEngine_ReplyToComment_NotifiesParentAuthor(t *testing.T) {
	fake := &fakeNotifier{
		comments: map[int64]*model.Comment{1: {ID: 1, AuthorID: 30}},
	}
	e := New(fake)

	reply := &model.Comment{ID: 2, AuthorID: 40, CommentableKind: model.KindComment, CommentableID: 1, Description: "reply"}
	e.HandleEvent(model.Event{Name: model.EventCommentCreated, Comment: reply})

	if len(fake.created) != 1 || fake.created[0].Kind != model.NotificationReplyToComment || fake.created[0].RecipientID != 30 {
		t.Fatalf("unexpected notifications: %+v", fake.created)
	}
}

func TestEngine_Mention_ResolvesAndSuppressesSelf(t *testing.T) {
	fake := &fakeNotifier{
		posts: map[int64]*model.Post{1: {ID: 1, AuthorID: 99}},
		users: map[string]*model.User{
			"alice": {ID: 50, Name: "alice"},
			"bob":   {ID: 20, Name: "bob"}, // same as the actor below
		},
	}
	e := New(fake)

	comment := &model.Comment{
		ID: 5, AuthorID: 20, CommentableKind: model.KindPost, CommentableID: 1,
		Description: "hi @alice and @bob and @alice again",
	}
	e.HandleEvent(model.Event{Name: model.EventCommentCreated, Comment: comment})

	// One comment_on_post notification to the post author (99), one
	// mention notification to alice (50); bob is the actor and
	// @alice is deduped to a single notification.
	if len(fake.created) != 2 {
		t.Fatalf("got %d notifications, want 2: %+v", len(fake.created), fake.created)
	}

	var mentionNotified bool
	for _, c := range fake.created {
		if c.Kind == model.NotificationMention {
			mentionNotified = true
			if c.RecipientID != 50 {
				t.Errorf("mention recipient = %d, want 50", c.RecipientID)
			}
		}
	}
	if !mentionNotified {
		t.Error("expected a mention notification for alice")
	}
}

func TestEngine_ReactionAdded_NotifiesTargetAuthor(t *testing.T) {
	fake := &fakeNotifier{
		comments: map[int64]*model.Comment{7: {ID: 7, AuthorID: 60}},
	}
	e := New(fake)

	reaction := &model.Reaction{ID: 1, ActorID: 70, TargetKind: model.KindComment, TargetID: 7, Kind: model.ReactionLove}
	e.HandleEvent(model.Event{Name: model.EventReactionAdded, Reaction: reaction})

	if len(fake.created) != 1 || fake.created[0].Kind != model.NotificationReactionOnComment || fake.created[0].RecipientID != 60 {
		t.Fatalf("unexpected notifications: %+v", fake.created)
	}
}

func TestEngine_UnresolvedMentionIsIgnored(t *testing.T) {
	fake := &fakeNotifier{
		posts: map[int64]*model.Post{1: {ID: 1, AuthorID: 1}},
	}
	e := New(fake)

	comment := &model.Comment{ID: 5, AuthorID: 1, CommentableKind: model.KindPost, CommentableID: 1, Description: "hi @ghost"}
	e.HandleEvent(model.Event{Name: model.EventCommentCreated, Comment: comment})

	for _, c := range fake.created {
		if c.Kind == model.NotificationMention {
			t.Error("unresolved handle should not produce a mention notification")
		}
	}
}
