// Package reaction implements ReactionToggle (C6): the single-
// reaction-per-(actor,target) state machine of §4.6.
package reaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialcore/internal/model"
)

// Toggle runs the add/changed/removed state machine for (actor,
// target) inside tx. The caller (store) is responsible for locking
// the target row before calling this and for adjusting
// target.reactions_count in the same transaction, per §4.6's
// "row lock then read-modify-write" contract.
func Toggle(ctx context.Context, tx *sqlx.Tx, actorID int64, target model.Ref, kind model.ReactionKind) (model.ToggleResult, error) {
	if !model.ValidReactionKind(kind) {
		return model.ToggleResult{}, model.ErrInvalidReactionKind
	}

	var existing model.Reaction
	err := tx.GetContext(ctx, &existing, `
		SELECT id, actor_id, target_kind, target_id, kind, created_at, updated_at
		FROM reactions
		WHERE actor_id = $1 AND target_kind = $2 AND target_id = $3
		FOR UPDATE
	`, actorID, target.Kind, target.ID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		var r model.Reaction
		insertErr := tx.GetContext(ctx, &r, `
			INSERT INTO reactions (actor_id, target_kind, target_id, kind)
			VALUES ($1, $2, $3, $4)
			RETURNING id, actor_id, target_kind, target_id, kind, created_at, updated_at
		`, actorID, target.Kind, target.ID, kind)
		if insertErr != nil {
			return model.ToggleResult{}, fmt.Errorf("insert reaction: %w", insertErr)
		}
		return model.ToggleResult{Action: model.ToggleAdded, Reaction: &r}, nil

	case err != nil:
		return model.ToggleResult{}, fmt.Errorf("lock existing reaction: %w", err)

	case existing.Kind == kind:
		if _, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE id = $1`, existing.ID); err != nil {
			return model.ToggleResult{}, fmt.Errorf("delete reaction: %w", err)
		}
		return model.ToggleResult{Action: model.ToggleRemoved}, nil

	default:
		var r model.Reaction
		if err := tx.GetContext(ctx, &r, `
			UPDATE reactions SET kind = $1, updated_at = now() WHERE id = $2
			RETURNING id, actor_id, target_kind, target_id, kind, created_at, updated_at
		`, kind, existing.ID); err != nil {
			return model.ToggleResult{}, fmt.Errorf("update reaction kind: %w", err)
		}
		return model.ToggleResult{Action: model.ToggleChanged, Reaction: &r}, nil
	}
}
