// Package cache holds the in-memory keyed stores the engine invalidates
// against, and the month-bucket key scheme they are partitioned by.
package cache

import (
	"fmt"
	"time"
)

// Bucket identifies one calendar month of cached todos. Month is zero-based
// (January = 0), matching the key scheme of the cached views.
type Bucket struct {
	Year  int
	Month int
}

// BucketFor returns the bucket containing a date.
func BucketFor(date time.Time) Bucket {
	return Bucket{Year: date.Year(), Month: int(date.Month()) - 1}
}

// Key renders the bucket cache key, "todos_{year}_{month0}".
func (b Bucket) Key() string {
	return fmt.Sprintf("todos_%d_%d", b.Year, b.Month)
}

// Range returns the inclusive first and last day of the bucket's month.
func (b Bucket) Range() (start, end time.Time) {
	start = time.Date(b.Year, time.Month(b.Month+1), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// Prev and Next step to the adjacent months with year rollover.
func (b Bucket) Prev() Bucket {
	if b.Month == 0 {
		return Bucket{Year: b.Year - 1, Month: 11}
	}
	return Bucket{Year: b.Year, Month: b.Month - 1}
}

func (b Bucket) Next() Bucket {
	if b.Month == 11 {
		return Bucket{Year: b.Year + 1, Month: 0}
	}
	return Bucket{Year: b.Year, Month: b.Month + 1}
}
