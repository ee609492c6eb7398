// Package virtual generates the ephemeral occurrences of the recurring-rule
// set over a date window and memoizes the result behind a fingerprint key.
package virtual

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"smartdo/internal/models"
	"smartdo/internal/occurrence"
)

// DefaultCapacity bounds the number of memoized windows.
const DefaultCapacity = 50

// Fingerprint derives the cache key for a rule set and window. Every rule
// contributes its id and updated_at, so any rule addition, edit, removal or
// deactivation changes the key and forces a miss. The parts are sorted so
// rule order does not matter.
func Fingerprint(rules []*models.RecurringTodo, rangeStart, rangeEnd time.Time) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, r.ID+"_"+r.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|") + "_" +
		rangeStart.Format(models.DateFormat) + "_" + rangeEnd.Format(models.DateFormat)
}

// Cache memoizes generated virtual todos keyed by Fingerprint output. It is
// bounded: when the capacity is reached the oldest-inserted fifth of the
// entries is evicted in one batch. Insertion order is the eviction order,
// not access order.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]*models.VirtualTodo
	order    []string

	hits   int
	misses int
}

func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string][]*models.VirtualTodo),
	}
}

// Generate returns the virtual todos for the rule set inside the inclusive
// window, computing and memoizing them on a miss. Cache mutation is the only
// side effect; for a fixed cache state the output is fully determined by the
// inputs.
func (c *Cache) Generate(rules []*models.RecurringTodo, rangeStart, rangeEnd time.Time) []*models.VirtualTodo {
	if len(rules) == 0 {
		return nil
	}

	key := Fingerprint(rules, rangeStart, rangeEnd)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.entries[key]; ok {
		c.hits++
		return cached
	}
	c.misses++

	var todos []*models.VirtualTodo
	for _, rule := range rules {
		res := occurrence.Expand(rule, rangeStart, rangeEnd)
		for _, d := range res.Dates {
			todos = append(todos, models.NewVirtualTodo(rule, d))
		}
	}

	c.evictIfFull()
	c.entries[key] = todos
	c.order = append(c.order, key)

	return todos
}

// evictIfFull drops the oldest fifth of the entries once the capacity is
// reached. Called with the lock held.
func (c *Cache) evictIfFull() {
	if len(c.order) < c.capacity {
		return
	}
	n := c.capacity / 5
	if n < 1 {
		n = 1
	}
	for _, key := range c.order[:n] {
		delete(c.entries, key)
	}
	c.order = append([]string(nil), c.order[n:]...)
	log.Printf("virtual: cache evicted %d oldest entries", n)
}

// InvalidateAll clears every memoized window. The sync coordinator calls
// this on any rule mutation, including deactivation.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]*models.VirtualTodo)
	c.order = nil
}

// Stats reports hit/miss counters and the current entry count.
func (c *Cache) Stats() (hits, misses, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
