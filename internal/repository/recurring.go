package repository

import (
	"context"

	"smartdo/internal/database"
	"smartdo/internal/models"
)

type RecurringRepository struct {
	db *database.DB
}

func NewRecurringRepository(db *database.DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

func (r *RecurringRepository) Create(ctx context.Context, rule *models.RecurringTodo) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO recurring_todos (title, start_date, time_of_day, repeat_count, repeat_unit, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		rule.Title, rule.StartDate, rule.Time, rule.RepeatCount, rule.RepeatUnit, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

// All returns every rule, active and inactive. Inactive rules generate no
// occurrences but still show up in rule listings.
func (r *RecurringRepository) All(ctx context.Context) ([]*models.RecurringTodo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, title, start_date, time_of_day, repeat_count, repeat_unit, is_active, created_at, updated_at
		 FROM recurring_todos
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.RecurringTodo
	for rows.Next() {
		rule := &models.RecurringTodo{}
		if err := rows.Scan(&rule.ID, &rule.Title, &rule.StartDate, &rule.Time,
			&rule.RepeatCount, &rule.RepeatUnit, &rule.IsActive,
			&rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Deactivate stops a rule from generating occurrences. Bumping updated_at
// changes every derived cache fingerprint that includes this rule.
func (r *RecurringRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE recurring_todos SET is_active = FALSE, updated_at = now() WHERE id = $1`,
		id,
	)
	return err
}
