package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialcore/internal/model"
)

// CreateNotification inserts a Notification row. Self-actions never
// produce notifications (§3 invariant); a duplicate mention for the
// same (recipient, kind, subject) is silently absorbed by the unique
// index rather than raising, satisfying §8's mention-derivation
// idempotence law. Returns (nil, nil) when the row was a no-op dup.
func (s *Store) CreateNotification(ctx context.Context, recipientID, actorID int64, kind model.NotificationKind, subject model.Ref) (*model.Notification, error) {
	if recipientID == actorID {
		return nil, nil
	}

	var n model.Notification
	err := s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		err := tx.GetContext(ctx, &n, `
			INSERT INTO notifications (recipient_id, actor_id, kind, subject_kind, subject_id, read)
			VALUES ($1, $2, $3, $4, $5, false)
			ON CONFLICT (recipient_id, kind, subject_kind, subject_id) DO NOTHING
			RETURNING id, recipient_id, actor_id, kind, subject_kind, subject_id, read, created_at
		`, recipientID, actorID, kind, subject.Kind, subject.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, errNoopNotification
		}
		if err != nil {
			return model.Event{}, fmt.Errorf("insert notification: %w", err)
		}
		return model.Event{Name: model.EventNotificationCreated, Notification: &n}, nil
	})
	if errors.Is(err, errNoopNotification) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// errNoopNotification signals a deduped insert; it never escapes this
// file and must not roll back anything since nothing was written.
var errNoopNotification = errors.New("notification deduped")

// MarkRead is idempotent: marking an already-read row is a no-op and
// emits no event, satisfying "at most one notification_read broker
// event per actually-changed row" (§8).
func (s *Store) MarkRead(ctx context.Context, actorID, notificationID int64) error {
	n, err := s.getNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != actorID {
		return model.ErrForbidden
	}
	if n.Read {
		return nil
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE notifications SET read = true WHERE id = $1`, notificationID); err != nil {
			return model.Event{}, fmt.Errorf("mark notification read: %w", err)
		}
		n.Read = true
		return model.Event{Name: model.EventNotificationRead, Notification: n}, nil
	})
}

// MarkAllRead sets read=true for every unread row of actorID.
func (s *Store) MarkAllRead(ctx context.Context, actorID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) (model.Event, error) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE notifications SET read = true WHERE recipient_id = $1 AND read = false`, actorID); err != nil {
			return model.Event{}, fmt.Errorf("mark all notifications read: %w", err)
		}
		return model.Event{Name: model.EventNotificationAllRead, UserID: actorID}, nil
	})
}

func (s *Store) getNotification(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	err := s.db.GetContext(ctx, &n, `
		SELECT id, recipient_id, actor_id, kind, subject_kind, subject_id, read, created_at
		FROM notifications WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// ListNotifications paginates a recipient's notifications, optionally
// filtered to read or unread.
func (s *Store) ListNotifications(ctx context.Context, recipientID int64, onlyUnread, onlyRead bool, page, perPage int) ([]model.Notification, model.PageMeta, error) {
	perPage = model.ClampPerPage(perPage, 20)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	where := "WHERE recipient_id = $1"
	switch {
	case onlyUnread:
		where += " AND read = false"
	case onlyRead:
		where += " AND read = true"
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM notifications `+where, recipientID); err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("count notifications: %w", err)
	}

	var notifications []model.Notification
	query := fmt.Sprintf(`
		SELECT id, recipient_id, actor_id, kind, subject_kind, subject_id, read, created_at
		FROM notifications %s
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, where)
	if err := s.db.SelectContext(ctx, &notifications, query, recipientID, perPage, offset); err != nil {
		return nil, model.PageMeta{}, fmt.Errorf("list notifications: %w", err)
	}

	for i := range notifications {
		if actor, err := s.GetUserByID(ctx, notifications[i].ActorID); err == nil {
			sum := actor.Summary()
			notifications[i].Actor = &sum
		}
	}

	return notifications, model.NewPageMeta(page, perPage, total), nil
}

func (s *Store) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND read = false`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
