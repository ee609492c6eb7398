package models

import (
	"errors"
	"fmt"
	"time"
)

type RepeatUnit string

const (
	RepeatDay   RepeatUnit = "day"
	RepeatWeek  RepeatUnit = "week"
	RepeatMonth RepeatUnit = "month"
)

func (u RepeatUnit) Valid() bool {
	switch u {
	case RepeatDay, RepeatWeek, RepeatMonth:
		return true
	}
	return false
}

var (
	ErrInvalidRepeatUnit  = errors.New("models: invalid repeat unit")
	ErrInvalidRepeatCount = errors.New("models: repeat count must be >= 1")
)

// RecurringTodo is a recurrence rule. Interval fields are immutable once
// created; deactivation (is_active = false) is the only supported cancel
// operation. UpdatedAt is bumped on deactivation so that the rule-set
// fingerprint changes and cached virtual occurrences miss.
type RecurringTodo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	StartDate   time.Time  `json:"start_date"`
	Time        *string    `json:"time,omitempty"`
	RepeatCount int        `json:"repeat_count"`
	RepeatUnit  RepeatUnit `json:"repeat_unit"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *RecurringTodo) Validate() error {
	if r.Title == "" {
		return errors.New("models: recurring todo title is required")
	}
	if r.StartDate.IsZero() {
		return errors.New("models: recurring todo start date is required")
	}
	if r.RepeatCount < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeatCount, r.RepeatCount)
	}
	if !r.RepeatUnit.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRepeatUnit, r.RepeatUnit)
	}
	return nil
}
