package smart

import (
	"context"
	"fmt"

	"smartdo/internal/cache"
	"smartdo/internal/models"
)

// Delete removes a SmartTodo from view. A real todo is deleted at the
// store with optimistic removal and rollback. A virtual todo cannot be
// deleted, only not shown: it is suppressed for the current session and
// reappears once the virtual cache regenerates (deactivating the rule is
// the durable way to stop an occurrence).
func (s *Service) Delete(ctx context.Context, st models.SmartTodo) error {
	switch t := st.(type) {
	case *models.VirtualTodo:
		s.mu.Lock()
		s.suppressed[t.ID] = struct{}{}
		s.mu.Unlock()
		return nil

	case *models.Todo:
		b := cache.BucketFor(t.Date)
		op := BeginOptimistic(s.buckets, b.Key())
		op.Apply(func(rows []*models.Todo) []*models.Todo {
			kept := rows[:0]
			for _, row := range rows {
				if row.ID != t.ID {
					kept = append(kept, row)
				}
			}
			return kept
		})

		if err := s.todos.Delete(ctx, t.ID); err != nil {
			op.Rollback()
			return err
		}
		s.buckets.Invalidate(b.Key())
		return nil

	default:
		return fmt.Errorf("smart: unknown todo variant %T", st)
	}
}
