// Package store implements the Store component (C1): transactional
// persistence of every durable entity, derived counter maintenance
// (C9), and the post-commit hook registry that FanOut and
// NotificationEngine attach to.
package store

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jmoiron/sqlx"

	"socialcore/internal/model"
)

// Hook is invoked after a transaction commits successfully. Per
// §4.1's commit hook contract a panicking or erroring hook never
// rolls back the already-committed write; it is only logged.
type Hook func(model.Event)

type Store struct {
	db *sqlx.DB

	mu    sync.RWMutex
	hooks []Hook
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// OnCommit registers hook to run, in registration order, after every
// successful commit made through this Store.
func (s *Store) OnCommit(hook Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// runHooks fires every registered hook for ev, recovering panics so a
// misbehaving hook can never affect the caller of the commit that
// triggered it.
func (s *Store) runHooks(ev model.Event) {
	s.mu.RLock()
	hooks := make([]Hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()

	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Store] commit hook panic: event=%s recovered=%v", ev.Name, r)
				}
			}()
			h(ev)
		}()
	}
}

// withTx runs fn inside a transaction; on success it commits and then
// fires registered hooks with the event fn returned.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) (model.Event, error)) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ev, err := fn(tx)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.runHooks(ev)
	return nil
}
