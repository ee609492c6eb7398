// Package invalidate plans which month buckets a recurring-rule mutation
// touches, so the sync coordinator can invalidate exactly those.
package invalidate

import (
	"sort"
	"time"

	"smartdo/internal/cache"
	"smartdo/internal/models"
)

// MaxSamples is the hard ceiling on sampled occurrences, independent of the
// unit-based estimate.
const MaxSamples = 50

// Unit horizons: how far ahead a mutation is assumed to matter, expressed in
// occurrences of a repeat_count-1 rule.
const (
	horizonDays   = 365
	horizonWeeks  = 52
	horizonMonths = 24
)

// AffectedBuckets samples the occurrences of a rule over a unit-bounded
// horizon and collapses them to their containing month buckets. The horizon
// is divided by repeatCount so sparse rules are not under-sampled and dense
// rules are not over-iterated: a rule repeating every 3 days samples
// ceil(365/3) dates to cover a year, capped at MaxSamples.
//
// The bucket containing today is always included when the rule starts today,
// explicitly rather than relying on the sampling to produce it, so adding a
// rule that starts now is reflected without a full resync.
func AffectedBuckets(startDate time.Time, repeatCount int, unit models.RepeatUnit, today time.Time) []cache.Bucket {
	startDate = models.DateOnly(startDate)
	if repeatCount < 1 {
		repeatCount = 1
	}

	seen := make(map[cache.Bucket]struct{})

	if models.SameDay(startDate, today) {
		seen[cache.BucketFor(today)] = struct{}{}
	}

	if !unit.Valid() {
		// Malformed unit: the start bucket (and possibly today's) is all
		// that can be said.
		seen[cache.BucketFor(startDate)] = struct{}{}
		return sortBuckets(seen)
	}

	samples := sampleBudget(unit, repeatCount)
	cursor := startDate
	for i := 0; i < samples; i++ {
		seen[cache.BucketFor(cursor)] = struct{}{}
		switch unit {
		case models.RepeatDay:
			cursor = cursor.AddDate(0, 0, repeatCount)
		case models.RepeatWeek:
			cursor = cursor.AddDate(0, 0, 7*repeatCount)
		case models.RepeatMonth:
			cursor = cursor.AddDate(0, repeatCount, 0)
		}
	}

	return sortBuckets(seen)
}

func sortBuckets(seen map[cache.Bucket]struct{}) []cache.Bucket {
	buckets := make([]cache.Bucket, 0, len(seen))
	for b := range seen {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Year != buckets[j].Year {
			return buckets[i].Year < buckets[j].Year
		}
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}

func sampleBudget(unit models.RepeatUnit, repeatCount int) int {
	var horizon int
	switch unit {
	case models.RepeatDay:
		horizon = horizonDays
	case models.RepeatWeek:
		horizon = horizonWeeks
	case models.RepeatMonth:
		horizon = horizonMonths
	default:
		return 1
	}
	samples := (horizon + repeatCount - 1) / repeatCount
	if samples > MaxSamples {
		samples = MaxSamples
	}
	if samples < 1 {
		samples = 1
	}
	return samples
}
