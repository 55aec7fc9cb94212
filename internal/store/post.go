package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"socialcore/internal/model"
)

// CreatePost inserts a post, attaches its tags (auto-creating unknown
// ones) and bumps author.posts_count / tag.posts_count inside one
// transaction, then fires post.created.
func (s *Store) CreatePost(ctx context.Context, authorID int64, draft model.CreatePostDraft) (*model.Post, error) {
	if len(draft.Title) < model.TitleMinLength {
		return nil, model.ErrTitleTooShort
	}
	if len(draft.Description) < model.DescriptionMinLength {
		return nil, model.ErrDescriptionTooShort
	}

	var post model.Post
	err := s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		err := tx.GetContext(ctx, &post, `
			INSERT INTO posts (author_id, title, description, image_ref)
			VALUES ($1, $2, $3, $4)
			RETURNING id, author_id, title, description, image_ref, reactions_count,
			          comments_count, created_at, updated_at
		`, authorID, draft.Title, draft.Description, draft.ImageRef)
		if err != nil {
			return model.Event{}, fmt.Errorf("insert post: %w", err)
		}

		tags, err := attachTags(ctx, tx, post.ID, nil, draft.TagNames)
		if err != nil {
			return model.Event{}, err
		}
		post.Tags = tags

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET posts_count = posts_count + 1 WHERE id = $1`, authorID); err != nil {
			return model.Event{}, fmt.Errorf("increment user posts_count: %w", err)
		}

		return model.Event{Name: model.EventPostCreated, Post: &post}, nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost applies patch fields that are non-nil. Only the author
// may update; enforced by a WHERE author_id = $actor clause combined
// with an existence pre-check to distinguish NotFound from Forbidden.
func (s *Store) UpdatePost(ctx context.Context, actorID, postID int64, patch model.UpdatePostPatch) (*model.Post, error) {
	existing, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, model.ErrNotPostAuthor
	}

	title := existing.Title
	if patch.Title != nil {
		if len(*patch.Title) < model.TitleMinLength {
			return nil, model.ErrTitleTooShort
		}
		title = *patch.Title
	}
	description := existing.Description
	if patch.Description != nil {
		if len(*patch.Description) < model.DescriptionMinLength {
			return nil, model.ErrDescriptionTooShort
		}
		description = *patch.Description
	}
	imageRef := existing.ImageRef
	if patch.ImageRef != nil {
		imageRef = patch.ImageRef
	}

	var post model.Post
	err = s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		err := tx.GetContext(ctx, &post, `
			UPDATE posts SET title = $1, description = $2, image_ref = $3, updated_at = now()
			WHERE id = $4
			RETURNING id, author_id, title, description, image_ref, reactions_count,
			          comments_count, created_at, updated_at
		`, title, description, imageRef, postID)
		if err != nil {
			return model.Event{}, fmt.Errorf("update post: %w", err)
		}

		if patch.TagNames != nil {
			tags, err := attachTags(ctx, tx, post.ID, existing.Tags, patch.TagNames)
			if err != nil {
				return model.Event{}, err
			}
			post.Tags = tags
		} else {
			post.Tags = existing.Tags
		}

		return model.Event{Name: model.EventPostUpdated, Post: &post}, nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost cascades to comments and tag links via ON DELETE CASCADE
// foreign keys. Reactions and Notifications are polymorphic
// (target_kind/target_id, subject_kind/subject_id) and carry no FK of
// their own, so every reaction on the post or a descendant comment,
// and every notification whose subject is the post, a descendant
// comment or one of those reactions, is deleted explicitly in the
// same transaction, per §3/§8's "destruction
// cascades to all Comments, Reactions, Notifications".
func (s *Store) DeletePost(ctx context.Context, actorID, postID int64) error {
	existing, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if existing.AuthorID != actorID {
		return model.ErrNotPostAuthor
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		var commentIDs []int64
		if err := tx.SelectContext(ctx, &commentIDs,
			`SELECT id FROM comments WHERE root_post_id = $1`, postID); err != nil {
			return model.Event{}, fmt.Errorf("collect descendant comments: %w", err)
		}

		var reactionIDs []int64
		if err := tx.SelectContext(ctx, &reactionIDs, `
			SELECT id FROM reactions
			WHERE (target_kind = 'post' AND target_id = $1)
			   OR (target_kind = 'comment' AND target_id = ANY($2))
		`, postID, pqArray(commentIDs)); err != nil {
			return model.Event{}, fmt.Errorf("collect reactions on post and its comments: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM notifications
			WHERE (subject_kind = 'post' AND subject_id = $1)
			   OR (subject_kind = 'comment' AND subject_id = ANY($2))
			   OR (subject_kind = 'reaction' AND subject_id = ANY($3))
		`, postID, pqArray(commentIDs), pqArray(reactionIDs)); err != nil {
			return model.Event{}, fmt.Errorf("delete notifications on removed post subtree: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM reactions
			WHERE (target_kind = 'post' AND target_id = $1)
			   OR (target_kind = 'comment' AND target_id = ANY($2))
		`, postID, pqArray(commentIDs)); err != nil {
			return model.Event{}, fmt.Errorf("delete reactions on removed post subtree: %w", err)
		}

		for _, t := range existing.Tags {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tags SET posts_count = posts_count - 1 WHERE id = $1`, t.ID); err != nil {
				return model.Event{}, fmt.Errorf("decrement tag posts_count: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID); err != nil {
			return model.Event{}, fmt.Errorf("delete post: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET posts_count = posts_count - 1 WHERE id = $1`, actorID); err != nil {
			return model.Event{}, fmt.Errorf("decrement user posts_count: %w", err)
		}

		return model.Event{Name: model.EventPostDeleted, Post: existing, DeletedIDs: commentIDs}, nil
	})
}

func (s *Store) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	var post model.Post
	err := s.db.GetContext(ctx, &post, `
		SELECT id, author_id, title, description, image_ref, reactions_count,
		       comments_count, created_at, updated_at
		FROM posts WHERE id = $1
	`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	tags, err := s.tagsForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Tags = tags

	author, err := s.GetUserByID(ctx, post.AuthorID)
	if err == nil {
		sum := author.Summary()
		post.Author = &sum
	}

	return &post, nil
}

// ListPosts filters by author and/or tag ids, newest first.
type ListPostsFilter struct {
	AuthorID *int64
	TagIDs   []int64
	Search   string
	Page     int
	PerPage  int
}

func (s *Store) ListPosts(ctx context.Context, f ListPostsFilter) ([]model.Post, model.PageMeta, error) {
	perPage := model.ClampPerPage(f.PerPage, 20)
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	where := "WHERE 1=1"
	args := []interface{}{}
	argN := 0
	next := func() int { argN++; return argN }

	if f.AuthorID != nil {
		where += fmt.Sprintf(" AND author_id = $%d", next())
		args = append(args, *f.AuthorID)
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d ESCAPE '\\' OR description ILIKE $%d ESCAPE '\\')", next(), argN)
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}
	if len(f.TagIDs) > 0 {
		where += fmt.Sprintf(` AND id IN (SELECT post_id FROM post_tags WHERE tag_id = ANY($%d))`, next())
		args = append(args, pqInt64Array(f.TagIDs))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM posts `+where, args...); err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("count posts: %w", err)
	}

	listArgs := append(append([]interface{}{}, args...), perPage, offset)
	query := fmt.Sprintf(`
		SELECT id, author_id, title, description, image_ref, reactions_count,
		       comments_count, created_at, updated_at
		FROM posts %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, next(), next())

	var posts []model.Post
	if err := s.db.SelectContext(ctx, &posts, query, listArgs...); err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("list posts: %w", err)
	}

	for i := range posts {
		tags, err := s.tagsForPost(ctx, posts[i].ID)
		if err == nil {
			posts[i].Tags = tags
		}
		if author, err := s.GetUserByID(ctx, posts[i].AuthorID); err == nil {
			sum := author.Summary()
			posts[i].Author = &sum
		}
	}

	return posts, model.NewPageMeta(page, perPage, total), nil
}

// escapeLike escapes ILIKE's own wildcard characters in user input so
// a search term containing a literal '%' or '_' matches literally
// instead of acting as a wildcard.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}
