package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialcore/internal/model"
)

func pqInt64Array(ids []int64) pq.Int64Array {
	return pq.Int64Array(ids)
}

// upsertTag returns the Tag row for name, auto-creating it on first
// use per §3's Tag lifecycle, lowercased for uniqueness.
func upsertTag(ctx context.Context, tx *sqlx.Tx, name string) (model.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var tag model.Tag
	err := tx.GetContext(ctx, &tag, `
		INSERT INTO tags (name, color, posts_count)
		VALUES ($1, '#888888', 0)
		ON CONFLICT (name) DO UPDATE SET name = tags.name
		RETURNING id, name, color, posts_count
	`, name)
	if err != nil {
		return model.Tag{}, fmt.Errorf("upsert tag %q: %w", name, err)
	}
	return tag, nil
}

// attachTags replaces the post's tag set with newNames (a no-op diff
// against oldTags), maintaining each affected tag's posts_count in
// the same transaction as the post mutation.
func attachTags(ctx context.Context, tx *sqlx.Tx, postID int64, oldTags []model.Tag, newNames []string) ([]model.Tag, error) {
	oldByID := make(map[int64]model.Tag, len(oldTags))
	for _, t := range oldTags {
		oldByID[t.ID] = t
	}

	var newTags []model.Tag
	newByID := make(map[int64]model.Tag)
	for _, name := range dedupTagNames(newNames) {
		tag, err := upsertTag(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		newTags = append(newTags, tag)
		newByID[tag.ID] = tag
	}

	for id := range oldByID {
		if _, stillPresent := newByID[id]; stillPresent {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM post_tags WHERE post_id = $1 AND tag_id = $2`, postID, id); err != nil {
			return nil, fmt.Errorf("detach tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET posts_count = posts_count - 1 WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("decrement tag posts_count: %w", err)
		}
	}

	for id := range newByID {
		if _, alreadyPresent := oldByID[id]; alreadyPresent {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, id); err != nil {
			return nil, fmt.Errorf("attach tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET posts_count = posts_count + 1 WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("increment tag posts_count: %w", err)
		}
	}

	return newTags, nil
}

func dedupTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (s *Store) tagsForPost(ctx context.Context, postID int64) ([]model.Tag, error) {
	var tags []model.Tag
	err := s.db.SelectContext(ctx, &tags, `
		SELECT t.id, t.name, t.color, t.posts_count
		FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = $1
		ORDER BY t.name
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post tags: %w", err)
	}
	return tags, nil
}
