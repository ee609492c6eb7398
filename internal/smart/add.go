package smart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smartdo/internal/cache"
	"smartdo/internal/models"
)

// AddParams describes a direct one-off add.
type AddParams struct {
	Title  string
	Date   time.Time
	Time   *string
	IsDone bool
}

// Add creates a one-off todo with an optimistic insert: a temp-id replica
// appears in the bucket cache immediately, is rolled back if the store
// rejects the insert, and is superseded by the authoritative row on the
// next bucket read.
func (s *Service) Add(ctx context.Context, p AddParams) (*models.Todo, error) {
	date := models.DateOnly(p.Date)
	b := cache.BucketFor(date)
	op := BeginOptimistic(s.buckets, b.Key())

	op.Apply(func(rows []*models.Todo) []*models.Todo {
		return append(rows, &models.Todo{
			ID:        "temp-" + uuid.NewString(),
			Title:     p.Title,
			Date:      date,
			Time:      p.Time,
			IsDone:    p.IsDone,
			CreatedAt: time.Now(),
		})
	})

	todo := &models.Todo{
		Title:  p.Title,
		Date:   date,
		Time:   p.Time,
		IsDone: p.IsDone,
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		op.Rollback()
		return nil, err
	}

	s.buckets.Invalidate(b.Key())
	return todo, nil
}
