package model

// EventName identifies a Store commit event. Generalizes the teacher's
// single FeedEvent.Type string constant set to the full operation list
// of §4.1/§4.4.
type EventName string

const (
	EventPostCreated EventName = "post.created"
	EventPostUpdated EventName = "post.updated"
	EventPostDeleted EventName = "post.deleted"

	EventCommentCreated EventName = "comment.created"
	EventCommentUpdated EventName = "comment.updated"
	EventCommentDeleted EventName = "comment.deleted"

	EventReactionAdded   EventName = "reaction.added"
	EventReactionChanged EventName = "reaction.changed"
	EventReactionRemoved EventName = "reaction.removed"

	EventNotificationCreated EventName = "notification.created"
	EventNotificationRead    EventName = "notification.read"
	EventNotificationAllRead EventName = "notification.all_read"
)

// Event is the single envelope type passed to every Store.OnCommit
// hook. Only the fields relevant to Name are populated; it plays the
// role the teacher's queue.FeedEvent struct plays for its narrower
// set of event types.
type Event struct {
	Name EventName

	Post    *Post
	Comment *Comment
	Reaction *Reaction
	ReactionAction ToggleAction

	Notification *Notification

	// RootPostID/CommentableKind/CommentableID let FanOut resolve
	// topics for delete events where the full entity is already gone.
	RootPostID      int64
	CommentableKind EntityKind
	CommentableID   int64

	// DeletedIDs carries the comment ids removed by a cascading delete.
	// They are removed together, so the slice order carries no meaning.
	DeletedIDs []int64

	// UserID addresses mark_all_read events, which have no single
	// notification row to reference.
	UserID int64
}
