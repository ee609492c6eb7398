package smart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartdo/internal/cache"
	"smartdo/internal/models"
)

// Toggle flips the done state of any SmartTodo. A real todo is toggled in
// place at the store; a virtual todo is materialized with the new state,
// which creates the shadowing row. Both paths apply an optimistic cache
// update first and roll it back if the store call fails, leaving the input
// unchanged and retryable.
func (s *Service) Toggle(ctx context.Context, st models.SmartTodo) (models.SmartTodo, error) {
	b := cache.BucketFor(st.GetDate())
	op := BeginOptimistic(s.buckets, b.Key())
	newDone := !st.GetDone()

	switch t := st.(type) {
	case *models.VirtualTodo:
		op.Apply(func(rows []*models.Todo) []*models.Todo {
			rid := t.RecurringID
			return append(rows, &models.Todo{
				ID:          "optimistic-" + uuid.NewString(),
				Title:       t.Title,
				Date:        t.Date,
				Time:        t.Time,
				IsDone:      newDone,
				RecurringID: &rid,
				CreatedAt:   time.Now(),
			})
		})

		real, err := s.mat.Materialize(ctx, t, newDone)
		if err != nil {
			op.Rollback()
			return nil, err
		}

		// Fresh rows next read, and regenerate virtuals so the new row's
		// shadow takes effect everywhere.
		s.buckets.Invalidate(b.Key())
		s.InvalidateVirtual()
		return real, nil

	case *models.Todo:
		op.Apply(func(rows []*models.Todo) []*models.Todo {
			for i, row := range rows {
				if row.ID == t.ID {
					toggled := *row
					toggled.IsDone = newDone
					rows[i] = &toggled
				}
			}
			return rows
		})

		if err := s.todos.SetDone(ctx, t.ID, newDone); err != nil {
			op.Rollback()
			return nil, err
		}

		s.buckets.Invalidate(b.Key())
		toggled := *t
		toggled.IsDone = newDone
		return &toggled, nil

	default:
		return nil, fmt.Errorf("smart: unknown todo variant %T", st)
	}
}
