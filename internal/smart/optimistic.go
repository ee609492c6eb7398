package smart

import (
	"smartdo/internal/cache"
	"smartdo/internal/models"
)

// Optimistic is the explicit three-phase protocol for speculative cache
// updates: Begin snapshots the bucket entry, Apply installs a speculative
// value built from a copy of the snapshot, and Rollback restores the
// snapshot (or removes the entry if there was none). A successful operation
// simply invalidates the bucket afterwards, letting the next read fetch
// authoritative rows.
type Optimistic struct {
	store    *cache.Store[[]*models.Todo]
	key      string
	snapshot []*models.Todo
	existed  bool
}

func BeginOptimistic(store *cache.Store[[]*models.Todo], key string) *Optimistic {
	snap, ok := store.Get(key)
	return &Optimistic{store: store, key: key, snapshot: snap, existed: ok}
}

// Apply installs mut's result as the speculative bucket value. mut receives
// a fresh copy of the snapshot slice; it must not mutate the todos it
// contains in place (replace elements with copies instead), since the
// snapshot aliases them for rollback.
func (o *Optimistic) Apply(mut func([]*models.Todo) []*models.Todo) {
	base := append([]*models.Todo(nil), o.snapshot...)
	o.store.Set(o.key, mut(base))
}

// Rollback restores the pre-speculation state.
func (o *Optimistic) Rollback() {
	if o.existed {
		o.store.Set(o.key, o.snapshot)
		return
	}
	o.store.Invalidate(o.key)
}
