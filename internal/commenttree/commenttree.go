// Package commenttree implements CommentTree (C5): the polymorphic
// commentable graph, direct-child listing, root resolution bounded by
// the cached root_post_id shortcut, and subtree delete cascades.
package commenttree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialcore/internal/model"
)

// maxAncestorWalk guards against a corrupted parent chain ever
// looping or running away; a well-formed tree never gets near it.
const maxAncestorWalk = 10000

// ResolveParent validates that parent exists and returns the root
// post id the new comment must be filed under: parent.ID itself when
// parent is a Post, or parent's own cached root_post_id when parent
// is a Comment.
func ResolveParent(ctx context.Context, q sqlx.QueryerContext, parent model.Ref) (rootPostID int64, err error) {
	switch parent.Kind {
	case model.KindPost:
		var exists bool
		if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, parent.ID); err != nil {
			return 0, fmt.Errorf("check post exists: %w", err)
		}
		if !exists {
			return 0, model.ErrCommentableNotFound
		}
		return parent.ID, nil
	case model.KindComment:
		var rootID int64
		err := sqlx.GetContext(ctx, q, &rootID, `SELECT root_post_id FROM comments WHERE id = $1`, parent.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrCommentableNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("resolve parent comment root: %w", err)
		}
		return rootID, nil
	default:
		return 0, fmt.Errorf("unknown commentable kind %q", parent.Kind)
	}
}

// Create inserts a comment under parent inside tx. Counter updates
// (comments_count on the root, replies_count on a Comment parent) are
// the caller's (store's) responsibility, inside the same transaction.
func Create(ctx context.Context, tx *sqlx.Tx, authorID int64, parent model.Ref, description string) (*model.Comment, error) {
	rootPostID, err := ResolveParent(ctx, tx, parent)
	if err != nil {
		return nil, err
	}

	var c model.Comment
	err = tx.GetContext(ctx, &c, `
		INSERT INTO comments (author_id, description, commentable_kind, commentable_id, root_post_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, author_id, description, commentable_kind, commentable_id, root_post_id,
		          reactions_count, replies_count, created_at, updated_at
	`, authorID, description, parent.Kind, parent.ID, rootPostID)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

// Get fetches a single comment by id.
func Get(ctx context.Context, q sqlx.QueryerContext, commentID int64) (*model.Comment, error) {
	var c model.Comment
	err := sqlx.GetContext(ctx, q, &c, `
		SELECT id, author_id, description, commentable_kind, commentable_id, root_post_id,
		       reactions_count, replies_count, created_at, updated_at
		FROM comments WHERE id = $1
	`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

// ListFor returns the direct children of parent, newest first,
// stable tie-break by id descending, per §4.5.
func ListFor(ctx context.Context, db *sqlx.DB, parent model.Ref, page, perPage int) ([]model.Comment, model.PageMeta, error) {
	perPage = model.ClampPerPage(perPage, 20)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	var total int
	if err := db.GetContext(ctx, &total,
		`SELECT count(*) FROM comments WHERE commentable_kind = $1 AND commentable_id = $2`,
		parent.Kind, parent.ID); err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("count comments: %w", err)
	}

	var comments []model.Comment
	err := db.SelectContext(ctx, &comments, `
		SELECT id, author_id, description, commentable_kind, commentable_id, root_post_id,
		       reactions_count, replies_count, created_at, updated_at
		FROM comments
		WHERE commentable_kind = $1 AND commentable_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, parent.Kind, parent.ID, perPage, offset)
	if err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("list comments: %w", err)
	}

	return comments, model.NewPageMeta(page, perPage, total), nil
}

// Ancestors walks the parent chain upward from comment, returning
// every ancestor Ref in order (immediate parent first), terminating
// at the root Post. Only the ancestors' rows are read, so comment's
// own row may already be gone.
func Ancestors(ctx context.Context, db *sqlx.DB, comment *model.Comment) ([]model.Ref, error) {
	var chain []model.Ref
	cur := comment.Commentable()
	for i := 0; i < maxAncestorWalk; i++ {
		chain = append(chain, cur)
		if cur.Kind == model.KindPost {
			return chain, nil
		}
		parent, err := Get(ctx, db, cur.ID)
		if err != nil {
			return nil, fmt.Errorf("walk ancestors: %w", err)
		}
		cur = parent.Commentable()
	}
	return nil, fmt.Errorf("ancestor chain exceeded %d hops, likely corrupted", maxAncestorWalk)
}

// CascadeResult describes what a subtree delete removed.
type CascadeResult struct {
	DeletedIDs []int64    // this comment plus every descendant, in no guaranteed order
	Parent     model.Ref  // the deleted comment's own parent, for replies_count/topic resolution
	RootPostID int64
}

// DeleteCascade removes comment and every descendant. The whole
// subtree is found with one recursive query over the commentable
// parent links and removed with a single DELETE. Reactions on
// the removed comments and Notifications whose subject resolves to
// one of them (a comment or a reaction on one) are polymorphic
// references with no FK of their own, so they are deleted explicitly
// here too, per §3/§8's "destruction cascades to ... reactions on
// this comment, and notifications pointing to it".
func DeleteCascade(ctx context.Context, tx *sqlx.Tx, commentID int64) (*CascadeResult, error) {
	c, err := Get(ctx, tx, commentID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	err = tx.SelectContext(ctx, &ids, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM comments WHERE id = $1
			UNION ALL
			SELECT c.id FROM comments c
			JOIN subtree s ON c.commentable_kind = 'comment' AND c.commentable_id = s.id
		)
		SELECT id FROM subtree
	`, commentID)
	if err != nil {
		return nil, fmt.Errorf("collect comment subtree: %w", err)
	}

	var reactionIDs []int64
	if err := tx.SelectContext(ctx, &reactionIDs,
		`SELECT id FROM reactions WHERE target_kind = 'comment' AND target_id = ANY($1)`, pqArray(ids)); err != nil {
		return nil, fmt.Errorf("collect reactions on comment subtree: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE (subject_kind = 'comment' AND subject_id = ANY($1))
		   OR (subject_kind = 'reaction' AND subject_id = ANY($2))
	`, pqArray(ids), pqArray(reactionIDs)); err != nil {
		return nil, fmt.Errorf("delete notifications on removed comment subtree: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reactions WHERE target_kind = 'comment' AND target_id = ANY($1)`, pqArray(ids)); err != nil {
		return nil, fmt.Errorf("delete reactions on removed comment subtree: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ANY($1)`, pqArray(ids)); err != nil {
		return nil, fmt.Errorf("delete comment subtree: %w", err)
	}

	return &CascadeResult{
		DeletedIDs: ids,
		Parent:     c.Commentable(),
		RootPostID: c.RootPostID,
	}, nil
}
