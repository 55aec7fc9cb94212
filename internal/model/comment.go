package model

import (
	"errors"
	"time"
)

// Comment is a reply to a Post or another Comment. Commentable is the
// polymorphic parent; RootPostID is a cached shortcut so walking to
// the root post never costs more than one lookup regardless of depth.
type Comment struct {
	ID             int64     `db:"id" json:"id"`
	AuthorID       int64     `db:"author_id" json:"author_id"`
	Description    string    `db:"description" json:"description"`
	CommentableKind EntityKind `db:"commentable_kind" json:"-"`
	CommentableID  int64     `db:"commentable_id" json:"-"`
	RootPostID     int64     `db:"root_post_id" json:"root_post_id"`
	ReactionsCount int       `db:"reactions_count" json:"reactions_count"`
	RepliesCount   int       `db:"replies_count" json:"replies_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Author *UserSummary `db:"-" json:"author,omitempty"`
}

// Commentable returns the polymorphic parent this comment was posted
// under (a Post or another Comment).
func (c *Comment) Commentable() Ref {
	return Ref{Kind: c.CommentableKind, ID: c.CommentableID}
}

// CreateCommentRequest is the body of POST /posts/:id/comments and
// POST /comments/:id/comments.
type CreateCommentRequest struct {
	Description string `json:"description"`
}

// UpdateCommentRequest is the body of PUT /comments/:id.
type UpdateCommentRequest struct {
	Description string `json:"description"`
}

// CommentListResponse is the paginated response for listing direct
// children of a Post or Comment.
type CommentListResponse struct {
	Comments []Comment `json:"comments"`
	Meta     PageMeta  `json:"meta"`
}

const CommentMinLength = 1

var (
	ErrCommentNotFound     = errors.New("comment not found")
	ErrNotCommentAuthor    = errors.New("not the author of this comment")
	ErrCommentTooShort     = errors.New("description must not be empty")
	ErrCommentableNotFound = errors.New("commentable target not found")
)
