package virtual

import (
	"fmt"
	"testing"
	"time"

	"smartdo/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rule(id string, start time.Time) *models.RecurringTodo {
	return &models.RecurringTodo{
		ID:          id,
		Title:       "rule " + id,
		StartDate:   start,
		RepeatCount: 1,
		RepeatUnit:  models.RepeatDay,
		IsActive:    true,
		UpdatedAt:   date(2025, 1, 1),
	}
}

func TestGenerateBuildsVirtualTodos(t *testing.T) {
	c := NewCache(10)
	rules := []*models.RecurringTodo{rule("r1", date(2025, 1, 1))}

	got := c.Generate(rules, date(2025, 1, 1), date(2025, 1, 3))
	if len(got) != 3 {
		t.Fatalf("expected 3 virtual todos, got %d", len(got))
	}
	if got[0].ID != "virtual_r1_2025-01-01" {
		t.Errorf("unexpected virtual id: %s", got[0].ID)
	}
	if got[0].RecurringID != "r1" || got[0].GetDone() {
		t.Errorf("virtual todo fields wrong: %+v", got[0])
	}
}

func TestGenerateHitsCache(t *testing.T) {
	c := NewCache(10)
	rules := []*models.RecurringTodo{rule("r1", date(2025, 1, 1))}

	c.Generate(rules, date(2025, 1, 1), date(2025, 1, 31))
	c.Generate(rules, date(2025, 1, 1), date(2025, 1, 31))

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Fatalf("expected 1 hit / 1 miss / 1 entry, got %d / %d / %d", hits, misses, size)
	}
}

func TestFingerprintChangesOnRuleUpdate(t *testing.T) {
	r := rule("r1", date(2025, 1, 1))
	rules := []*models.RecurringTodo{r}
	start, end := date(2025, 1, 1), date(2025, 1, 31)

	before := Fingerprint(rules, start, end)

	// Deactivation bumps updated_at; the fingerprint must move with it.
	r.IsActive = false
	r.UpdatedAt = r.UpdatedAt.Add(time.Hour)
	after := Fingerprint(rules, start, end)

	if before == after {
		t.Fatal("fingerprint must change when a rule's updated_at changes")
	}
}

func TestFingerprintIgnoresRuleOrder(t *testing.T) {
	a := rule("a", date(2025, 1, 1))
	b := rule("b", date(2025, 1, 2))
	start, end := date(2025, 1, 1), date(2025, 1, 31)

	fp1 := Fingerprint([]*models.RecurringTodo{a, b}, start, end)
	fp2 := Fingerprint([]*models.RecurringTodo{b, a}, start, end)
	if fp1 != fp2 {
		t.Fatal("fingerprint must not depend on rule order")
	}
}

func TestEvictionDropsOldestBatch(t *testing.T) {
	c := NewCache(10)
	start := date(2025, 1, 1)

	// Fill to capacity with distinct windows.
	for i := 0; i < 10; i++ {
		rules := []*models.RecurringTodo{rule(fmt.Sprintf("r%d", i), start)}
		c.Generate(rules, start, start.AddDate(0, 0, i))
	}
	_, _, size := c.Stats()
	if size != 10 {
		t.Fatalf("expected full cache, got %d entries", size)
	}

	// One more insert triggers eviction of the oldest fifth (2 entries).
	rules := []*models.RecurringTodo{rule("overflow", start)}
	c.Generate(rules, start, start.AddDate(0, 1, 0))

	_, _, size = c.Stats()
	if size != 9 {
		t.Fatalf("expected 9 entries after batch eviction, got %d", size)
	}

	// The first inserted window must now miss again.
	first := []*models.RecurringTodo{rule("r0", start)}
	_, missesBefore, _ := c.Stats()
	c.Generate(first, start, start)
	_, missesAfter, _ := c.Stats()
	if missesAfter != missesBefore+1 {
		t.Fatal("oldest entry should have been evicted")
	}
}

func TestInvalidateAll(t *testing.T) {
	c := NewCache(10)
	rules := []*models.RecurringTodo{rule("r1", date(2025, 1, 1))}
	c.Generate(rules, date(2025, 1, 1), date(2025, 1, 31))

	c.InvalidateAll()
	_, _, size := c.Stats()
	if size != 0 {
		t.Fatalf("expected empty cache after InvalidateAll, got %d", size)
	}
}
