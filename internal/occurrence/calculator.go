// Package occurrence expands a recurrence rule into concrete calendar dates
// inside a requested window. The expansion is a plain cursor walk rather than
// an RRULE evaluation: the skip-forward phase and the emission phase share
// one iteration budget, and malformed rules degrade to an empty result so a
// single bad rule never blocks its siblings.
package occurrence

import (
	"log"
	"time"

	"smartdo/internal/models"
)

// MaxIterations caps the combined skip and emission loop work per rule.
// Sized for 100+ rules across a 90-day window with headroom.
const MaxIterations = 2000

// Result carries the expanded dates plus a truncation flag. Truncated means
// the iteration ceiling was hit and the dates are a prefix of the full
// expansion; callers treat that as a performance warning, not a failure.
type Result struct {
	Dates     []time.Time
	Truncated bool
}

// Expand returns the sorted dates on which rule fires inside the inclusive
// window [rangeStart, rangeEnd], at calendar-day granularity.
//
// Month steps follow time.AddDate normalization: Jan 31 plus one month is
// Mar 2 (or Mar 3 in leap years), not Feb 28. That is the one documented
// month-end rollover rule for this module.
func Expand(rule *models.RecurringTodo, rangeStart, rangeEnd time.Time) Result {
	if !rule.IsActive {
		return Result{}
	}

	rangeStart = models.DateOnly(rangeStart)
	rangeEnd = models.DateOnly(rangeEnd)
	cursor := models.DateOnly(rule.StartDate)

	if cursor.After(rangeEnd) {
		return Result{}
	}
	if rule.RepeatCount < 1 {
		log.Printf("occurrence: rule %q has repeat_count %d, skipping", rule.Title, rule.RepeatCount)
		return Result{}
	}
	if !rule.RepeatUnit.Valid() {
		log.Printf("occurrence: rule %q has unknown repeat_unit %q, skipping", rule.Title, rule.RepeatUnit)
		return Result{}
	}

	iterations := 0

	// Skip forward until the cursor reaches the window's lower edge.
	for cursor.Before(rangeStart) && iterations < MaxIterations {
		iterations++
		cursor = step(cursor, rule)
	}

	var dates []time.Time
	for !cursor.After(rangeEnd) && iterations < MaxIterations {
		iterations++
		if !cursor.Before(rangeStart) {
			dates = append(dates, cursor)
		}
		cursor = step(cursor, rule)
	}

	truncated := iterations >= MaxIterations
	if truncated {
		log.Printf("occurrence: iteration ceiling (%d) hit for rule %q, result truncated", MaxIterations, rule.Title)
	}

	return Result{Dates: dates, Truncated: truncated}
}

func step(cursor time.Time, rule *models.RecurringTodo) time.Time {
	switch rule.RepeatUnit {
	case models.RepeatDay:
		return cursor.AddDate(0, 0, rule.RepeatCount)
	case models.RepeatWeek:
		return cursor.AddDate(0, 0, 7*rule.RepeatCount)
	case models.RepeatMonth:
		return cursor.AddDate(0, rule.RepeatCount, 0)
	}
	// Unreachable: the unit is validated before the loops run.
	return cursor.AddDate(0, 0, rule.RepeatCount)
}
