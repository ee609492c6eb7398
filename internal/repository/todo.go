package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"smartdo/internal/database"
	"smartdo/internal/models"
)

type TodoRepository struct {
	db *database.DB
}

func NewTodoRepository(db *database.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO todos (title, date, time_of_day, is_done, recurring_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		todo.Title, todo.Date, todo.Time, todo.IsDone, todo.RecurringID,
	).Scan(&todo.ID, &todo.CreatedAt)
}

// Upsert inserts a materialized occurrence. If a row for the same
// (recurring_id, date) pair already exists the insert is a no-op and the
// todo's ID is left empty; the existing row stays authoritative.
func (r *TodoRepository) Upsert(ctx context.Context, todo *models.Todo) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO todos (title, date, time_of_day, is_done, recurring_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (recurring_id, date) WHERE recurring_id IS NOT NULL DO NOTHING
		 RETURNING id, created_at`,
		todo.Title, todo.Date, todo.Time, todo.IsDone, todo.RecurringID,
	).Scan(&todo.ID, &todo.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict: the occurrence was already materialized.
		return nil
	}
	return err
}

func (r *TodoRepository) ByMonth(ctx context.Context, year, month0 int) ([]*models.Todo, error) {
	start := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return r.byRange(ctx, start, end)
}

func (r *TodoRepository) ByRange(ctx context.Context, start, end time.Time) ([]*models.Todo, error) {
	return r.byRange(ctx, start, end.AddDate(0, 0, 1))
}

func (r *TodoRepository) byRange(ctx context.Context, start, endExclusive time.Time) ([]*models.Todo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, title, date, time_of_day, is_done, recurring_id, created_at
		 FROM todos WHERE date >= $1 AND date < $2
		 ORDER BY date ASC, time_of_day ASC NULLS LAST, created_at ASC`,
		start, endExclusive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []*models.Todo
	for rows.Next() {
		todo := &models.Todo{}
		if err := rows.Scan(&todo.ID, &todo.Title, &todo.Date, &todo.Time,
			&todo.IsDone, &todo.RecurringID, &todo.CreatedAt); err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

func (r *TodoRepository) SetDone(ctx context.Context, id string, done bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE todos SET is_done = $1 WHERE id = $2`,
		done, id,
	)
	return err
}

func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM todos WHERE id = $1`,
		id,
	)
	return err
}
