package model

import (
	"errors"
	"time"
)

// Post is authored content that roots a comment tree.
type Post struct {
	ID             int64     `db:"id" json:"id"`
	AuthorID       int64     `db:"author_id" json:"author_id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	ImageRef       *string   `db:"image_ref" json:"image_ref,omitempty"`
	ReactionsCount int       `db:"reactions_count" json:"reactions_count"`
	CommentsCount  int       `db:"comments_count" json:"comments_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Author  *UserSummary `db:"-" json:"author,omitempty"`
	Tags    []Tag        `db:"-" json:"tags,omitempty"`
}

// CreatePostDraft is the validated input to Store.CreatePost.
type CreatePostDraft struct {
	Title       string
	Description string
	ImageRef    *string
	TagNames    []string
}

// UpdatePostPatch is the validated input to Store.UpdatePost; nil
// fields are left unchanged.
type UpdatePostPatch struct {
	Title       *string
	Description *string
	ImageRef    *string
	TagNames    []string
}

// CreatePostRequest is the body of POST /posts.
type CreatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageRef    *string  `json:"image_ref,omitempty"`
	TagIDs      []int64  `json:"tag_ids,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdatePostRequest is the body of PUT /posts/:id.
type UpdatePostRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	ImageRef    *string  `json:"image_ref,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// PostListResponse is the paginated response for GET /posts.
type PostListResponse struct {
	Posts []Post   `json:"posts"`
	Meta  PageMeta `json:"meta"`
}

const (
	TitleMinLength       = 3
	DescriptionMinLength = 10
)

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrNotPostAuthor      = errors.New("not the author of this post")
	ErrTitleTooShort      = errors.New("title must be at least 3 characters")
	ErrDescriptionTooShort = errors.New("description must be at least 10 characters")
)
