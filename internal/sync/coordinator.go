// Package sync turns change events from the store into targeted cache
// invalidation, so a rule edit on one device is reflected on the others
// without flushing every cached month.
package sync

import (
	"context"
	"log"
	stdsync "sync"
	"time"

	"smartdo/internal/cache"
	"smartdo/internal/invalidate"
	"smartdo/internal/models"
)

// VirtualInvalidator clears all derived virtual-occurrence state.
type VirtualInvalidator interface {
	InvalidateVirtual()
}

// RuleRefresher reloads the recurring-rule list from the store.
type RuleRefresher interface {
	RefreshRules(ctx context.Context) error
}

// RuleChange carries the fields of a mutated rule needed to bound the
// invalidation. Zero StartDate or an unknown unit degrades gracefully
// inside the planner.
type RuleChange struct {
	StartDate   time.Time
	RepeatCount int
	RepeatUnit  models.RepeatUnit
}

// TaskChange describes a persisted-todo mutation. Date is nil when the
// payload did not carry one, forcing a conservative full flush.
type TaskChange struct {
	Date *time.Time
}

type Coordinator struct {
	virtuals VirtualInvalidator
	rules    RuleRefresher
	buckets  *cache.Store[[]*models.Todo]

	mu      stdsync.Mutex
	pending bool // a rule refresh failed and must be retried
}

func NewCoordinator(virtuals VirtualInvalidator, rules RuleRefresher, buckets *cache.Store[[]*models.Todo]) *Coordinator {
	return &Coordinator{virtuals: virtuals, rules: rules, buckets: buckets}
}

// RuleChanged handles a recurring-rule create/update/deactivate. Virtual
// state is cleared coarsely (it is cheap to regenerate), persisted-todo
// buckets only where the rule can actually place occurrences. The rule
// list refresh runs last; on failure the stale list stays in use and the
// refresh is marked pending.
func (c *Coordinator) RuleChanged(ctx context.Context, ch RuleChange) {
	c.virtuals.InvalidateVirtual()

	for _, b := range invalidate.AffectedBuckets(ch.StartDate, ch.RepeatCount, ch.RepeatUnit, time.Now()) {
		c.buckets.Invalidate(b.Key())
	}

	if err := c.rules.RefreshRules(ctx); err != nil {
		log.Printf("sync: rule refresh failed, will retry: %v", err)
		c.mu.Lock()
		c.pending = true
		c.mu.Unlock()
	}
}

// TaskChanged handles a persisted-todo insert/update/delete. Only the
// containing month goes stale; virtual state is untouched because rows
// shadow virtuals at merge time, not at generation time.
func (c *Coordinator) TaskChanged(ch TaskChange) {
	if ch.Date == nil {
		c.buckets.InvalidateAll()
		return
	}
	c.buckets.Invalidate(cache.BucketFor(*ch.Date).Key())
}

// RetryPending re-runs a rule refresh that previously failed. Safe to call
// on a timer; it is a no-op when nothing is pending.
func (c *Coordinator) RetryPending(ctx context.Context) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if !pending {
		return
	}
	if err := c.rules.RefreshRules(ctx); err != nil {
		log.Printf("sync: rule refresh retry failed: %v", err)
		return
	}
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}
