package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialcore/internal/model"
	"socialcore/internal/reaction"
)

// ToggleReaction runs the C6 state machine against target and keeps
// target.reactions_count coherent in the same transaction. A unique-
// constraint race (two concurrent first-reactions from the same
// actor) surfaces as model.ErrReactionConflict; §7 has the caller
// retry the toggle against the now-current row.
func (s *Store) ToggleReaction(ctx context.Context, actorID int64, target model.Ref, kind model.ReactionKind) (model.ToggleResult, error) {
	if !model.ValidReactionKind(kind) {
		return model.ToggleResult{}, model.ErrInvalidReactionKind
	}
	if err := s.lockTargetExists(ctx, target); err != nil {
		return model.ToggleResult{}, err
	}

	var result model.ToggleResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		var lockErr error
		switch target.Kind {
		case model.KindPost:
			lockErr = tx.GetContext(ctx, new(int64), `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, target.ID)
		case model.KindComment:
			lockErr = tx.GetContext(ctx, new(int64), `SELECT id FROM comments WHERE id = $1 FOR UPDATE`, target.ID)
		}
		if errors.Is(lockErr, sql.ErrNoRows) {
			return model.Event{}, model.ErrReactionTargetNotFound
		}
		if lockErr != nil {
			return model.Event{}, fmt.Errorf("lock reaction target: %w", lockErr)
		}

		var err error
		result, err = reaction.Toggle(ctx, tx, actorID, target, kind)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return model.Event{}, model.ErrReactionConflict
			}
			return model.Event{}, err
		}

		delta := 0
		switch result.Action {
		case model.ToggleAdded:
			delta = 1
		case model.ToggleRemoved:
			delta = -1
		}
		if delta != 0 {
			table := "posts"
			if target.Kind == model.KindComment {
				table = "comments"
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET reactions_count = reactions_count + $1 WHERE id = $2`, table),
				delta, target.ID); err != nil {
				return model.Event{}, fmt.Errorf("adjust reactions_count: %w", err)
			}
		}

		eventName := map[model.ToggleAction]model.EventName{
			model.ToggleAdded:   model.EventReactionAdded,
			model.ToggleChanged: model.EventReactionChanged,
			model.ToggleRemoved: model.EventReactionRemoved,
		}[result.Action]

		return model.Event{
			Name:            eventName,
			Reaction:        result.Reaction,
			ReactionAction:  result.Action,
			CommentableKind: target.Kind,
			CommentableID:   target.ID,
		}, nil
	})
	if err != nil {
		return model.ToggleResult{}, err
	}
	return result, nil
}

func (s *Store) lockTargetExists(ctx context.Context, target model.Ref) error {
	var exists bool
	var err error
	switch target.Kind {
	case model.KindPost:
		err = s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, target.ID)
	case model.KindComment:
		err = s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, target.ID)
	default:
		return fmt.Errorf("unknown target kind %q", target.Kind)
	}
	if err != nil {
		return fmt.Errorf("check reaction target exists: %w", err)
	}
	if !exists {
		return model.ErrReactionTargetNotFound
	}
	return nil
}

// ReactionCounts aggregates a target's live reaction kinds.
func (s *Store) ReactionCounts(ctx context.Context, target model.Ref) (model.ReactionCountsResponse, error) {
	rows := []struct {
		Kind  model.ReactionKind `db:"kind"`
		Count int                `db:"count"`
	}{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT kind, count(*) AS count FROM reactions
		WHERE target_kind = $1 AND target_id = $2
		GROUP BY kind
	`, target.Kind, target.ID)
	if err != nil {
		return model.ReactionCountsResponse{}, fmt.Errorf("aggregate reactions: %w", err)
	}

	out := model.ReactionCountsResponse{Counts: map[model.ReactionKind]int{}}
	for _, r := range rows {
		out.Counts[r.Kind] = r.Count
		out.Total += r.Count
	}
	return out, nil
}
