package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialcore/internal/commenttree"
	"socialcore/internal/model"
)

// CreateComment files a comment under parent (a Post or Comment),
// bumping the root post's comments_count and, when parent is itself a
// Comment, the parent's replies_count, inside one transaction.
func (s *Store) CreateComment(ctx context.Context, authorID int64, parent model.Ref, description string) (*model.Comment, error) {
	if len(description) < model.CommentMinLength {
		return nil, model.ErrCommentTooShort
	}

	var comment *model.Comment
	err := s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		var err error
		comment, err = commenttree.Create(ctx, tx, authorID, parent, description)
		if err != nil {
			return model.Event{}, err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, comment.RootPostID); err != nil {
			return model.Event{}, fmt.Errorf("increment post comments_count: %w", err)
		}
		if parent.Kind == model.KindComment {
			if _, err := tx.ExecContext(ctx,
				`UPDATE comments SET replies_count = replies_count + 1 WHERE id = $1`, parent.ID); err != nil {
				return model.Event{}, fmt.Errorf("increment parent replies_count: %w", err)
			}
		}

		return model.Event{
			Name:            model.EventCommentCreated,
			Comment:         comment,
			RootPostID:      comment.RootPostID,
			CommentableKind: parent.Kind,
			CommentableID:   parent.ID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment lets only the author edit the description. Parents
// are immutable per §3, so no commentable change is possible here.
func (s *Store) UpdateComment(ctx context.Context, actorID, commentID int64, description string) (*model.Comment, error) {
	if len(description) < model.CommentMinLength {
		return nil, model.ErrCommentTooShort
	}

	existing, err := commenttree.Get(ctx, s.db, commentID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, model.ErrNotCommentAuthor
	}

	var comment model.Comment
	err = s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		err := tx.GetContext(ctx, &comment, `
			UPDATE comments SET description = $1, updated_at = now()
			WHERE id = $2
			RETURNING id, author_id, description, commentable_kind, commentable_id, root_post_id,
			          reactions_count, replies_count, created_at, updated_at
		`, description, commentID)
		if err != nil {
			return model.Event{}, fmt.Errorf("update comment: %w", err)
		}
		return model.Event{
			Name:            model.EventCommentUpdated,
			Comment:         &comment,
			RootPostID:      comment.RootPostID,
			CommentableKind: comment.CommentableKind,
			CommentableID:   comment.CommentableID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes the comment and every descendant,
// decrementing the root post's comments_count by the full removed
// count and the immediate parent's replies_count by one, per §4.9.
func (s *Store) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	existing, err := commenttree.Get(ctx, s.db, commentID)
	if err != nil {
		return err
	}
	if existing.AuthorID != actorID {
		return model.ErrNotCommentAuthor
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		result, err := commenttree.DeleteCascade(ctx, tx, commentID)
		if err != nil {
			return model.Event{}, err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET comments_count = comments_count - $1 WHERE id = $2`,
			len(result.DeletedIDs), result.RootPostID); err != nil {
			return model.Event{}, fmt.Errorf("decrement post comments_count: %w", err)
		}
		if result.Parent.Kind == model.KindComment {
			if _, err := tx.ExecContext(ctx,
				`UPDATE comments SET replies_count = replies_count - 1 WHERE id = $1`, result.Parent.ID); err != nil {
				return model.Event{}, fmt.Errorf("decrement parent replies_count: %w", err)
			}
		}

		return model.Event{
			Name:            model.EventCommentDeleted,
			Comment:         existing,
			RootPostID:      result.RootPostID,
			CommentableKind: result.Parent.Kind,
			CommentableID:   result.Parent.ID,
			DeletedIDs:      result.DeletedIDs,
		}, nil
	})
}

func (s *Store) GetComment(ctx context.Context, commentID int64) (*model.Comment, error) {
	c, err := commenttree.Get(ctx, s.db, commentID)
	if err != nil {
		return nil, err
	}
	if author, err := s.GetUserByID(ctx, c.AuthorID); err == nil {
		sum := author.Summary()
		c.Author = &sum
	}
	return c, nil
}

// ListComments returns the direct children of parent (a Post or
// Comment).
func (s *Store) ListComments(ctx context.Context, parent model.Ref, page, perPage int) ([]model.Comment, model.PageMeta, error) {
	comments, meta, err := commenttree.ListFor(ctx, s.db, parent, page, perPage)
	if err != nil {
		return nil, model.PageMeta{}, err
	}
	for i := range comments {
		if author, err := s.GetUserByID(ctx, comments[i].AuthorID); err == nil {
			sum := author.Summary()
			comments[i].Author = &sum
		}
	}
	return comments, meta, nil
}
