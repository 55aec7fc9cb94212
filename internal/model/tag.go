package model

import "errors"

// Tag is auto-created on first use and associated with posts in a
// set (no duplicate tag on the same post).
type Tag struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Color      string `db:"color" json:"color"`
	PostsCount int    `db:"posts_count" json:"posts_count"`
}

var ErrTagNotFound = errors.New("tag not found")
