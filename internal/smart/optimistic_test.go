package smart

import (
	"testing"

	"smartdo/internal/cache"
	"smartdo/internal/models"
)

func TestOptimisticRollbackRestoresSnapshot(t *testing.T) {
	store := cache.NewStore[[]*models.Todo]()
	store.Set("k", []*models.Todo{{ID: "a"}, {ID: "b"}})

	op := BeginOptimistic(store, "k")
	op.Apply(func(rows []*models.Todo) []*models.Todo {
		return append(rows, &models.Todo{ID: "c"})
	})

	got, _ := store.Get("k")
	if len(got) != 3 {
		t.Fatalf("speculative value not installed, len=%d", len(got))
	}

	op.Rollback()
	got, ok := store.Get("k")
	if !ok || len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("rollback did not restore snapshot: %v", got)
	}
}

func TestOptimisticRollbackRemovesWhenAbsent(t *testing.T) {
	store := cache.NewStore[[]*models.Todo]()

	op := BeginOptimistic(store, "k")
	op.Apply(func(rows []*models.Todo) []*models.Todo {
		return append(rows, &models.Todo{ID: "a"})
	})
	if _, ok := store.Get("k"); !ok {
		t.Fatal("speculative entry missing")
	}

	op.Rollback()
	if _, ok := store.Get("k"); ok {
		t.Fatal("rollback must remove an entry that did not exist before")
	}
}

func TestOptimisticApplyDoesNotAliasSnapshot(t *testing.T) {
	store := cache.NewStore[[]*models.Todo]()
	store.Set("k", []*models.Todo{{ID: "a", Title: "before"}})

	op := BeginOptimistic(store, "k")
	op.Apply(func(rows []*models.Todo) []*models.Todo {
		edited := *rows[0]
		edited.Title = "after"
		rows[0] = &edited
		return rows
	})

	op.Rollback()
	got, _ := store.Get("k")
	if got[0].Title != "before" {
		t.Fatalf("snapshot was mutated through the applied copy: %q", got[0].Title)
	}
}
