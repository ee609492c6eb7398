package smart

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smartdo/internal/cache"
	"smartdo/internal/materialize"
	"smartdo/internal/models"
	"smartdo/internal/virtual"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// todoStub is an in-memory TodoSource with fault injection.
type todoStub struct {
	rows     map[string]*models.Todo
	nextID   int
	byMonth  int // call counter
	failNext error
}

func newTodoStub() *todoStub {
	return &todoStub{rows: make(map[string]*models.Todo)}
}

func (s *todoStub) takeErr() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *todoStub) ByMonth(_ context.Context, year, month0 int) ([]*models.Todo, error) {
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	s.byMonth++
	var out []*models.Todo
	for _, t := range s.rows {
		if t.Date.Year() == year && int(t.Date.Month())-1 == month0 {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *todoStub) Create(_ context.Context, t *models.Todo) error {
	if err := s.takeErr(); err != nil {
		return err
	}
	s.nextID++
	t.ID = "db-" + strings.Repeat("0", 3) + string(rune('a'+s.nextID))
	t.CreatedAt = time.Now()
	s.rows[t.ID] = t
	return nil
}

func (s *todoStub) Upsert(_ context.Context, t *models.Todo) error {
	if err := s.takeErr(); err != nil {
		return err
	}
	for _, row := range s.rows {
		if row.RecurringID != nil && t.RecurringID != nil &&
			*row.RecurringID == *t.RecurringID && models.SameDay(row.Date, t.Date) {
			return nil
		}
	}
	return s.Create(context.Background(), t)
}

func (s *todoStub) SetDone(_ context.Context, id string, done bool) error {
	if err := s.takeErr(); err != nil {
		return err
	}
	if t, ok := s.rows[id]; ok {
		t.IsDone = done
	}
	return nil
}

func (s *todoStub) Delete(_ context.Context, id string) error {
	if err := s.takeErr(); err != nil {
		return err
	}
	delete(s.rows, id)
	return nil
}

type ruleStub struct {
	rules    []*models.RecurringTodo
	failNext error
	calls    int
}

func (s *ruleStub) All(context.Context) ([]*models.RecurringTodo, error) {
	s.calls++
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}
	return s.rules, nil
}

func newService(todos *todoStub, rules *ruleStub) *Service {
	return NewService(
		todos,
		rules,
		materialize.New(todos),
		cache.NewStore[[]*models.Todo](),
		virtual.NewCache(10),
	)
}

func dailyRule(id string, start time.Time) *models.RecurringTodo {
	return &models.RecurringTodo{
		ID:          id,
		Title:       "water plants",
		StartDate:   start,
		RepeatCount: 1,
		RepeatUnit:  models.RepeatDay,
		IsActive:    true,
		UpdatedAt:   start,
	}
}

func TestWindowMergesRealAndVirtual(t *testing.T) {
	todos := newTodoStub()
	rid := "r1"
	todos.rows["t1"] = &models.Todo{ID: "t1", Title: "water plants", Date: date(2025, 1, 2), RecurringID: &rid}
	rules := &ruleStub{rules: []*models.RecurringTodo{dailyRule("r1", date(2025, 1, 1))}}
	svc := newService(todos, rules)

	got, err := svc.Window(context.Background(), cache.Bucket{Year: 2025, Month: 0})
	if err != nil {
		t.Fatalf("window failed: %v", err)
	}

	var realCount, virtualCount int
	for _, st := range got {
		if st.IsVirtual() {
			virtualCount++
			if models.SameDay(st.GetDate(), date(2025, 1, 2)) {
				t.Error("virtual Jan 2 should be shadowed by the persisted row")
			}
		} else {
			realCount++
		}
	}
	if realCount != 1 {
		t.Errorf("expected 1 real todo, got %d", realCount)
	}
	// Daily rule across January: 31 occurrences, one shadowed.
	if virtualCount != 30 {
		t.Errorf("expected 30 virtual todos, got %d", virtualCount)
	}

	if svc.WindowPhase(cache.Bucket{Year: 2025, Month: 0}) != Ready {
		t.Error("window should be Ready after a successful fetch")
	}
}

func TestWindowUsesBucketCache(t *testing.T) {
	todos := newTodoStub()
	rules := &ruleStub{}
	svc := newService(todos, rules)
	b := cache.Bucket{Year: 2025, Month: 0}

	if _, err := svc.Window(context.Background(), b); err != nil {
		t.Fatalf("first window failed: %v", err)
	}
	if _, err := svc.Window(context.Background(), b); err != nil {
		t.Fatalf("second window failed: %v", err)
	}
	if todos.byMonth != 1 {
		t.Fatalf("expected 1 store fetch, got %d", todos.byMonth)
	}
}

func TestCacheStatsCountHitsAndMisses(t *testing.T) {
	todos := newTodoStub()
	rules := &ruleStub{rules: []*models.RecurringTodo{dailyRule("r1", date(2025, 1, 1))}}
	svc := newService(todos, rules)
	b := cache.Bucket{Year: 2025, Month: 0}

	if _, err := svc.Window(context.Background(), b); err != nil {
		t.Fatalf("first window failed: %v", err)
	}
	if _, err := svc.Window(context.Background(), b); err != nil {
		t.Fatalf("second window failed: %v", err)
	}

	hits, misses, size := svc.CacheStats()
	if misses != 1 || hits != 1 {
		t.Errorf("stats = %d hits, %d misses, want 1 and 1", hits, misses)
	}
	if size != 1 {
		t.Errorf("cached windows = %d, want 1", size)
	}
}

func TestWindowServesStaleRulesOnRefreshFailure(t *testing.T) {
	todos := newTodoStub()
	rules := &ruleStub{rules: []*models.RecurringTodo{dailyRule("r1", date(2025, 1, 1))}}
	svc := newService(todos, rules)
	b := cache.Bucket{Year: 2025, Month: 0}

	if _, err := svc.Window(context.Background(), b); err != nil {
		t.Fatalf("priming window failed: %v", err)
	}

	// A later refresh failure must not break windows: the stale list
	// stays in use.
	rules.failNext = errors.New("connection reset")
	if err := svc.RefreshRules(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	got, err := svc.Window(context.Background(), b)
	if err != nil {
		t.Fatalf("window after failed refresh: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected virtual todos from the stale rule list")
	}
}

func TestWindowFailsWithoutAnyRules(t *testing.T) {
	todos := newTodoStub()
	rules := &ruleStub{failNext: errors.New("no route to host")}
	svc := newService(todos, rules)
	b := cache.Bucket{Year: 2025, Month: 0}

	if _, err := svc.Window(context.Background(), b); err == nil {
		t.Fatal("expected error when no rule list was ever fetched")
	}
	if svc.WindowPhase(b) != Unfetched {
		t.Error("failed window must drop back to Unfetched and stay retryable")
	}
}

func TestWindowSupersededByNewerRequest(t *testing.T) {
	svc := newService(newTodoStub(), &ruleStub{})
	b := cache.Bucket{Year: 2025, Month: 0}

	older := svc.beginWindow(b)
	svc.beginWindow(b) // newer request for the same window

	if svc.commitWindow(older) {
		t.Fatal("an in-flight fetch must be discarded once a newer one starts")
	}
}

func TestToggleRealRollsBackOnFailure(t *testing.T) {
	todos := newTodoStub()
	todos.rows["t1"] = &models.Todo{ID: "t1", Title: "dentist", Date: date(2025, 1, 5)}
	svc := newService(todos, &ruleStub{})
	b := cache.Bucket{Year: 2025, Month: 0}

	if _, err := svc.Window(context.Background(), b); err != nil {
		t.Fatalf("window failed: %v", err)
	}

	todos.failNext = errors.New("constraint violation")
	if _, err := svc.Toggle(context.Background(), todos.rows["t1"]); err == nil {
		t.Fatal("expected toggle failure")
	}

	// Optimistic state rolled back: cached bucket still shows not-done.
	cached, ok := svc.Buckets().Get(b.Key())
	if !ok {
		t.Fatal("bucket cache entry lost after rollback")
	}
	for _, row := range cached {
		if row.ID == "t1" && row.IsDone {
			t.Error("rollback did not restore the snapshot")
		}
	}
}

func TestToggleVirtualMaterializes(t *testing.T) {
	todos := newTodoStub()
	rules := &ruleStub{rules: []*models.RecurringTodo{dailyRule("r1", date(2025, 1, 1))}}
	svc := newService(todos, rules)
	b := cache.Bucket{Year: 2025, Month: 0}

	window, err := svc.Window(context.Background(), b)
	if err != nil {
		t.Fatalf("window failed: %v", err)
	}
	var v models.SmartTodo
	for _, st := range window {
		if st.IsVirtual() && models.SameDay(st.GetDate(), date(2025, 1, 3)) {
			v = st
			break
		}
	}
	if v == nil {
		t.Fatal("no virtual todo for Jan 3 in window")
	}

	real, err := svc.Toggle(context.Background(), v)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if real.IsVirtual() || !real.GetDone() {
		t.Fatalf("expected a done real todo, got %+v", real)
	}

	// Toggling the same occurrence again (e.g. a second tap racing the
	// refetch) must not create a second row for the pair.
	if _, err := svc.Toggle(context.Background(), v); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	count := 0
	for _, row := range todos.rows {
		if row.RecurringID != nil && *row.RecurringID == "r1" && models.SameDay(row.Date, date(2025, 1, 3)) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 materialized row, got %d", count)
	}

	// The refetched window must show the real row instead of the virtual.
	window, err = svc.Window(context.Background(), b)
	if err != nil {
		t.Fatalf("refetched window failed: %v", err)
	}
	for _, st := range window {
		if st.IsVirtual() && models.SameDay(st.GetDate(), date(2025, 1, 3)) {
			t.Error("virtual occurrence still visible after materialization")
		}
	}
}

func TestDeleteVirtualSuppressesWithoutStoreCall(t *testing.T) {
	todos := newTodoStub()
	rules := &ruleStub{rules: []*models.RecurringTodo{dailyRule("r1", date(2025, 1, 1))}}
	svc := newService(todos, rules)
	b := cache.Bucket{Year: 2025, Month: 0}

	window, _ := svc.Window(context.Background(), b)
	v := window[0]
	if !v.IsVirtual() {
		// Find a virtual entry; ordering puts reals first only for ties.
		for _, st := range window {
			if st.IsVirtual() {
				v = st
				break
			}
		}
	}

	if err := svc.Delete(context.Background(), v); err != nil {
		t.Fatalf("virtual delete failed: %v", err)
	}
	if len(todos.rows) != 0 {
		t.Error("virtual delete must not touch the store")
	}

	window, _ = svc.Window(context.Background(), b)
	for _, st := range window {
		if st.GetID() == v.GetID() {
			t.Error("suppressed virtual still in window")
		}
	}

	// Suppression is session-level: a rule mutation clears it.
	svc.InvalidateVirtual()
	window, _ = svc.Window(context.Background(), b)
	found := false
	for _, st := range window {
		if st.GetID() == v.GetID() {
			found = true
		}
	}
	if !found {
		t.Error("virtual occurrence should regenerate after InvalidateVirtual")
	}
}

func TestAddRollsBackOnFailure(t *testing.T) {
	todos := newTodoStub()
	svc := newService(todos, &ruleStub{})
	b := cache.Bucket{Year: 2025, Month: 2}

	todos.failNext = errors.New("insert failed")
	if _, err := svc.Add(context.Background(), AddParams{Title: "x", Date: date(2025, 3, 1)}); err == nil {
		t.Fatal("expected add failure")
	}
	if _, ok := svc.Buckets().Get(b.Key()); ok {
		t.Error("optimistic entry must be removed when the bucket had no snapshot")
	}
}
