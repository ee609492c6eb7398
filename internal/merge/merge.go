// Package merge combines persisted todos and virtual occurrences for the
// same window into one ordered, duplicate-free list.
package merge

import (
	"sort"
	"strings"

	"smartdo/internal/models"
)

// untimedKey sorts after any real clock time so untimed todos land last.
const untimedKey = "99:99"

// Merge returns the deduplicated union of real and virtual todos.
//
// A persisted todo always shadows its virtual counterpart: any virtual todo
// whose (recurring_id, date) pair also appears among the real todos is
// dropped, so at most one entry per pair survives and it is the real one.
//
// The order is total: time ascending with untimed entries last, then real
// before virtual, then title, then id. Pure function, no I/O.
func Merge(real []*models.Todo, virtual []*models.VirtualTodo) []models.SmartTodo {
	shadowed := make(map[string]struct{}, len(real))
	for _, t := range real {
		if t.RecurringID != nil {
			shadowed[pairKey(*t.RecurringID, t)] = struct{}{}
		}
	}

	merged := make([]models.SmartTodo, 0, len(real)+len(virtual))
	for _, t := range real {
		merged = append(merged, t)
	}
	for _, v := range virtual {
		if _, ok := shadowed[pairKey(v.RecurringID, v)]; ok {
			continue
		}
		merged = append(merged, v)
	}

	sort.Slice(merged, func(i, j int) bool {
		return less(merged[i], merged[j])
	})
	return merged
}

func pairKey(recurringID string, t models.SmartTodo) string {
	return recurringID + "_" + t.GetDate().Format(models.DateFormat)
}

func less(a, b models.SmartTodo) bool {
	at, bt := timeKey(a), timeKey(b)
	if at != bt {
		return at < bt
	}
	if a.IsVirtual() != b.IsVirtual() {
		return !a.IsVirtual() // real before virtual
	}
	if a.GetTitle() != b.GetTitle() {
		return a.GetTitle() < b.GetTitle()
	}
	return a.GetID() < b.GetID()
}

func timeKey(t models.SmartTodo) string {
	tm := t.GetTime()
	if tm == nil || *tm == "" {
		return untimedKey
	}
	// Stored times may carry a single-digit hour ("9:30"); pad so the
	// lexicographic comparison matches clock order.
	if strings.IndexByte(*tm, ':') == 1 {
		return "0" + *tm
	}
	return *tm
}
