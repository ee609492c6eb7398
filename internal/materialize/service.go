// Package materialize converts a virtual occurrence into a persisted todo
// row exactly once, when the user first interacts with it.
package materialize

import (
	"context"
	"fmt"
	"time"

	"smartdo/internal/models"
)

// Upserter persists a todo keyed on (recurring_id, date): inserting the same
// pair twice must leave exactly one row. The Postgres repository satisfies
// this with ON CONFLICT DO NOTHING against a partial unique index.
type Upserter interface {
	Upsert(ctx context.Context, todo *models.Todo) error
}

type Service struct {
	store Upserter
}

func New(store Upserter) *Service {
	return &Service{store: store}
}

// Materialize persists the virtual occurrence with the given done state and
// returns the resulting todo. The returned row carries a placeholder id
// ("materialized-{nanos}") for immediate display; the authoritative id is
// adopted when the bucket is next refetched.
//
// Repeated materialization of the same (recurring_id, date) pair is
// idempotent at the store. On failure the virtual todo is untouched (it is
// immutable) and stays eligible for retry; the caller rolls back whatever
// optimistic state it applied.
func (s *Service) Materialize(ctx context.Context, v *models.VirtualTodo, done bool) (*models.Todo, error) {
	recurringID := v.RecurringID
	todo := &models.Todo{
		Title:       v.Title,
		Date:        v.Date,
		Time:        v.Time,
		IsDone:      done,
		RecurringID: &recurringID,
	}

	if err := s.store.Upsert(ctx, todo); err != nil {
		return nil, fmt.Errorf("materialize %s: %w", v.ID, err)
	}

	now := time.Now()
	if todo.ID == "" {
		todo.ID = fmt.Sprintf("materialized-%d", now.UnixNano())
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now
	}
	return todo, nil
}
