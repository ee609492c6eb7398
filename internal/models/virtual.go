package models

import (
	"regexp"
	"time"
)

// VirtualTodo is an ephemeral occurrence of a recurrence rule. It is never
// persisted: it exists only as a computed value inside a query window and is
// regenerated on every cache miss. Interacting with one materializes it into
// a Todo row, which then shadows it.
type VirtualTodo struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title"`
	Date          time.Time `json:"date"`
	Time          *string   `json:"time,omitempty"`
	RecurringID   string    `json:"recurring_id"`
}

func (v *VirtualTodo) IsVirtual() bool { return true }

func (v *VirtualTodo) GetID() string      { return v.ID }
func (v *VirtualTodo) GetTitle() string   { return v.Title }
func (v *VirtualTodo) GetDate() time.Time { return v.Date }
func (v *VirtualTodo) GetTime() *string   { return v.Time }

// GetDone is fixed: a virtual occurrence is by definition not done, since
// completing it materializes a real row.
func (v *VirtualTodo) GetDone() bool { return false }

// SmartTodo is the union of a persisted Todo and an ephemeral VirtualTodo.
// Consumers must discriminate via IsVirtual (or a type switch) and never
// assume one concrete shape.
type SmartTodo interface {
	IsVirtual() bool
	GetID() string
	GetTitle() string
	GetDate() time.Time
	GetTime() *string
	GetDone() bool
}

// NewVirtualTodo builds the virtual occurrence of a rule on a given date.
// Total: there is no failure mode, title and time are copied verbatim from
// the rule and the id is deterministic for the (rule, date) pair.
func NewVirtualTodo(rule *RecurringTodo, date time.Time) *VirtualTodo {
	return &VirtualTodo{
		ID:            VirtualID(rule.ID, date),
		Title:         rule.Title,
		OriginalTitle: rule.Title,
		Date:          DateOnly(date),
		Time:          rule.Time,
		RecurringID:   rule.ID,
	}
}

// VirtualID builds the deterministic id "virtual_{ruleID}_{YYYY-MM-DD}".
func VirtualID(ruleID string, date time.Time) string {
	return "virtual_" + ruleID + "_" + date.Format(DateFormat)
}

var virtualIDPattern = regexp.MustCompile(`^virtual_(.+)_(\d{4}-\d{2}-\d{2})$`)

// ParseVirtualID recovers the (ruleID, date) pair from a virtual id.
// The second return is false for anything that is not a virtual id.
func ParseVirtualID(id string) (ruleID string, date time.Time, ok bool) {
	m := virtualIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", time.Time{}, false
	}
	d, err := time.ParseInLocation(DateFormat, m[2], time.UTC)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], d, true
}
