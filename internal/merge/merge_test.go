package merge

import (
	"math/rand"
	"testing"
	"time"

	"smartdo/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strptr(s string) *string { return &s }

func realTodo(id, title string, d time.Time, recurringID *string) *models.Todo {
	return &models.Todo{ID: id, Title: title, Date: d, RecurringID: recurringID}
}

func virtualTodo(ruleID, title string, d time.Time) *models.VirtualTodo {
	rule := &models.RecurringTodo{ID: ruleID, Title: title, RepeatCount: 1, RepeatUnit: models.RepeatDay, IsActive: true}
	return models.NewVirtualTodo(rule, d)
}

func TestMergeShadowsVirtualByRealPair(t *testing.T) {
	// Real todo materialized for ("r1", Jan 2); virtual occurrences exist
	// for Jan 1-3. The merged window must carry the real Jan 2 only.
	rid := "r1"
	real := []*models.Todo{realTodo("t1", "water plants", date(2025, 1, 2), &rid)}
	virtual := []*models.VirtualTodo{
		virtualTodo("r1", "water plants", date(2025, 1, 1)),
		virtualTodo("r1", "water plants", date(2025, 1, 2)),
		virtualTodo("r1", "water plants", date(2025, 1, 3)),
	}

	got := Merge(real, virtual)
	if len(got) != 3 {
		t.Fatalf("expected 3 merged todos, got %d", len(got))
	}

	var realCount, virtualCount int
	for _, st := range got {
		if st.IsVirtual() {
			virtualCount++
			if models.SameDay(st.GetDate(), date(2025, 1, 2)) {
				t.Error("virtual Jan 2 must be shadowed by the real todo")
			}
		} else {
			realCount++
			if st.GetID() != "t1" {
				t.Errorf("unexpected real todo %s", st.GetID())
			}
		}
	}
	if realCount != 1 || virtualCount != 2 {
		t.Fatalf("expected 1 real + 2 virtual, got %d + %d", realCount, virtualCount)
	}
}

func TestMergeKeepsUnrelatedReals(t *testing.T) {
	real := []*models.Todo{realTodo("t1", "dentist", date(2025, 1, 2), nil)}
	virtual := []*models.VirtualTodo{virtualTodo("r1", "water plants", date(2025, 1, 2))}

	got := Merge(real, virtual)
	if len(got) != 2 {
		t.Fatalf("a real todo without recurring_id must not shadow anything, got %d entries", len(got))
	}
}

func TestMergeOrdering(t *testing.T) {
	rid := "r9"
	real := []*models.Todo{
		{ID: "t-untimed", Title: "zeta", Date: date(2025, 1, 5)},
		{ID: "t-0900", Title: "meeting", Date: date(2025, 1, 5), Time: strptr("09:00")},
		{ID: "t-1500", Title: "call", Date: date(2025, 1, 5), Time: strptr("15:00"), RecurringID: &rid},
	}
	v := virtualTodo("r2", "meeting", date(2025, 1, 5))
	v.Time = strptr("09:00")
	virtual := []*models.VirtualTodo{
		v,
		virtualTodo("r3", "alpha", date(2025, 1, 5)),
	}

	got := Merge(real, virtual)
	wantIDs := []string{
		"t-0900",                   // 09:00 real
		"virtual_r2_2025-01-05",    // 09:00 virtual, same title, real first
		"t-1500",                   // 15:00
		"t-untimed",                // untimed real before untimed virtuals
		"virtual_r3_2025-01-05",    // untimed virtual
	}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d entries, got %d", len(wantIDs), len(got))
	}
	for i, want := range wantIDs {
		if got[i].GetID() != want {
			t.Errorf("position %d: want %s, got %s", i, want, got[i].GetID())
		}
	}
}

func TestMergeOrderingSingleDigitHour(t *testing.T) {
	// A stored "9:30" must sort by clock time, not byte order, so it lands
	// before 15:00 and after 08:15.
	real := []*models.Todo{
		{ID: "t-afternoon", Title: "call", Date: date(2025, 1, 5), Time: strptr("15:00")},
		{ID: "t-morning", Title: "standup", Date: date(2025, 1, 5), Time: strptr("9:30")},
		{ID: "t-early", Title: "gym", Date: date(2025, 1, 5), Time: strptr("08:15")},
	}

	got := Merge(real, nil)
	wantIDs := []string{"t-early", "t-morning", "t-afternoon"}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d entries, got %d", len(wantIDs), len(got))
	}
	for i, want := range wantIDs {
		if got[i].GetID() != want {
			t.Errorf("position %d: want %s, got %s", i, want, got[i].GetID())
		}
	}
}

func TestMergeOrderIsStableAcrossInputOrder(t *testing.T) {
	rid := "r1"
	real := []*models.Todo{
		realTodo("t1", "b", date(2025, 1, 1), nil),
		realTodo("t2", "a", date(2025, 1, 1), &rid),
		{ID: "t3", Title: "a", Date: date(2025, 1, 1), Time: strptr("08:00")},
	}
	virtual := []*models.VirtualTodo{
		virtualTodo("r2", "a", date(2025, 1, 1)),
		virtualTodo("r3", "b", date(2025, 1, 1)),
		virtualTodo("r1", "a", date(2025, 1, 1)), // shadowed by t2
	}

	base := Merge(real, virtual)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		r := append([]*models.Todo(nil), real...)
		v := append([]*models.VirtualTodo(nil), virtual...)
		rng.Shuffle(len(r), func(i, j int) { r[i], r[j] = r[j], r[i] })
		rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })

		got := Merge(r, v)
		if len(got) != len(base) {
			t.Fatalf("trial %d: length changed: %d vs %d", trial, len(got), len(base))
		}
		for i := range base {
			if got[i].GetID() != base[i].GetID() {
				t.Fatalf("trial %d: order diverged at %d: %s vs %s", trial, i, got[i].GetID(), base[i].GetID())
			}
		}
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Fatalf("merge of nothing must be empty, got %d", len(got))
	}
}
