package models

import "time"

// DateFormat is the calendar-day format used for virtual ids, cache keys and
// wire payloads.
const DateFormat = "2006-01-02"

// DateOnly truncates a timestamp to calendar-day granularity in UTC. All
// date comparisons in the engine happen on DateOnly values.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
