package models

import "time"

// Todo is a persisted task row. Rows are created by a direct add or by
// materializing a virtual occurrence; a row with a recurring_id always
// shadows the virtual occurrence for the same (recurring_id, date).
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Time        *string   `json:"time,omitempty"`
	IsDone      bool      `json:"is_done"`
	RecurringID *string   `json:"recurring_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Todo) IsVirtual() bool { return false }

func (t *Todo) GetID() string      { return t.ID }
func (t *Todo) GetTitle() string   { return t.Title }
func (t *Todo) GetDate() time.Time { return t.Date }
func (t *Todo) GetTime() *string   { return t.Time }
func (t *Todo) GetDone() bool      { return t.IsDone }
