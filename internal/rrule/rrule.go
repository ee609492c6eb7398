// Package rrule bridges the app's fixed-stride repeat rules to RFC 5545
// recurrence rules, for export and for human-readable rule listings.
package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"smartdo/internal/models"
)

func freqFor(unit models.RepeatUnit) (rrule.Frequency, error) {
	switch unit {
	case models.RepeatDay:
		return rrule.DAILY, nil
	case models.RepeatWeek:
		return rrule.WEEKLY, nil
	case models.RepeatMonth:
		return rrule.MONTHLY, nil
	default:
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidRepeatUnit, unit)
	}
}

// FromRule converts a repeat rule to an RRule anchored at its start date.
func FromRule(rule *models.RecurringTodo) (*rrule.RRule, error) {
	freq, err := freqFor(rule.RepeatUnit)
	if err != nil {
		return nil, err
	}
	return rrule.NewRRule(rrule.ROption{
		Freq:     freq,
		Interval: rule.RepeatCount,
		Dtstart:  rule.StartDate,
	})
}

// Export renders the rule as an RRULE string suitable for iCalendar export.
func Export(rule *models.RecurringTodo) (string, error) {
	r, err := FromRule(rule)
	if err != nil {
		return "", err
	}
	return "RRULE:" + r.OrigOptions.RRuleString(), nil
}

// NextAfter returns the first occurrence strictly after the given time, or
// nil if the rule is inactive.
func NextAfter(rule *models.RecurringTodo, after time.Time) (*time.Time, error) {
	if !rule.IsActive {
		return nil, nil
	}
	r, err := FromRule(rule)
	if err != nil {
		return nil, err
	}
	next := r.After(after, false)
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}

// Describe returns a short human-readable cadence, e.g. "every day" or
// "every 2 weeks".
func Describe(rule *models.RecurringTodo) string {
	unit := string(rule.RepeatUnit)
	if !rule.RepeatUnit.Valid() {
		return "unknown cadence"
	}

	var b strings.Builder
	if rule.RepeatCount == 1 {
		b.WriteString("every " + unit)
	} else {
		fmt.Fprintf(&b, "every %d %ss", rule.RepeatCount, unit)
	}
	if rule.Time != nil && *rule.Time != "" {
		b.WriteString(" at " + *rule.Time)
	}
	if !rule.IsActive {
		b.WriteString(" (stopped)")
	}
	return b.String()
}
