// Package smart orchestrates the merged view of persisted todos and virtual
// occurrences: fetching a month window, toggling, adding and deleting, with
// optimistic cache updates and rollback.
package smart

import (
	"context"
	"errors"
	"log"
	"sync"

	"smartdo/internal/cache"
	"smartdo/internal/merge"
	"smartdo/internal/models"
	"smartdo/internal/virtual"
)

// TodoSource is the persisted-store capability the service consumes.
type TodoSource interface {
	ByMonth(ctx context.Context, year, month0 int) ([]*models.Todo, error)
	Create(ctx context.Context, todo *models.Todo) error
	SetDone(ctx context.Context, id string, done bool) error
	Delete(ctx context.Context, id string) error
}

// RuleSource returns all recurring-rule definitions.
type RuleSource interface {
	All(ctx context.Context) ([]*models.RecurringTodo, error)
}

// Materializer persists a virtual occurrence; see internal/materialize.
type Materializer interface {
	Materialize(ctx context.Context, v *models.VirtualTodo, done bool) (*models.Todo, error)
}

// ErrSuperseded reports that a window fetch finished after a newer fetch for
// the same window had started; the result was discarded (last-requested
// wins).
var ErrSuperseded = errors.New("smart: window fetch superseded by a newer request")

// Phase is the lifecycle of one requested window.
type Phase int

const (
	Unfetched Phase = iota
	FetchingRules
	FetchingVirtual
	Ready
)

type windowState struct {
	phase      Phase
	generation uint64
}

type windowToken struct {
	bucket     cache.Bucket
	generation uint64
}

type Service struct {
	todos   TodoSource
	rules   RuleSource
	mat     Materializer
	buckets *cache.Store[[]*models.Todo]
	vcache  *virtual.Cache

	mu          sync.Mutex
	windows     map[cache.Bucket]*windowState
	ruleList    []*models.RecurringTodo
	rulesLoaded bool
	suppressed  map[string]struct{}
}

func NewService(todos TodoSource, rules RuleSource, mat Materializer, buckets *cache.Store[[]*models.Todo], vcache *virtual.Cache) *Service {
	return &Service{
		todos:      todos,
		rules:      rules,
		mat:        mat,
		buckets:    buckets,
		vcache:     vcache,
		windows:    make(map[cache.Bucket]*windowState),
		suppressed: make(map[string]struct{}),
	}
}

// Window returns the merged, ordered todo list for one month bucket. The
// rule list is resolved before virtual generation, so virtual todos are
// never derived from a partially stale rule set. If a newer request for the
// same bucket starts while this one is in flight, this result is discarded
// and ErrSuperseded returned.
func (s *Service) Window(ctx context.Context, b cache.Bucket) ([]models.SmartTodo, error) {
	tok := s.beginWindow(b)

	rules, err := s.loadRules(ctx)
	if err != nil {
		s.abortWindow(tok)
		return nil, err
	}
	s.advanceWindow(tok, FetchingVirtual)

	real, err := s.loadBucket(ctx, b)
	if err != nil {
		s.abortWindow(tok)
		return nil, err
	}

	start, end := b.Range()
	virtuals := s.withoutSuppressed(s.vcache.Generate(rules, start, end))
	merged := merge.Merge(real, virtuals)

	if !s.commitWindow(tok) {
		return nil, ErrSuperseded
	}
	return merged, nil
}

// PrefetchAdjacent warms the previous and next month so navigation is
// instant. Best effort: errors are logged, not returned. The two months are
// independent of each other and of the current window.
func (s *Service) PrefetchAdjacent(ctx context.Context, b cache.Bucket) {
	for _, adj := range []cache.Bucket{b.Prev(), b.Next()} {
		if _, err := s.loadBucket(ctx, adj); err != nil {
			log.Printf("smart: prefetch of %s failed: %v", adj.Key(), err)
			continue
		}
		s.mu.Lock()
		rules, loaded := s.ruleList, s.rulesLoaded
		s.mu.Unlock()
		if loaded {
			start, end := adj.Range()
			s.vcache.Generate(rules, start, end)
		}
	}
}

// RefreshRules replaces the cached rule list from the store. On failure the
// previously cached rules remain in use and the error is returned so the
// caller can schedule a retry.
func (s *Service) RefreshRules(ctx context.Context) error {
	rules, err := s.rules.All(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ruleList = rules
	s.rulesLoaded = true
	s.mu.Unlock()
	return nil
}

// InvalidateVirtual clears every cached virtual window and any session-level
// virtual suppressions. Called by the sync coordinator on any rule mutation.
func (s *Service) InvalidateVirtual() {
	s.vcache.InvalidateAll()
	s.mu.Lock()
	s.suppressed = make(map[string]struct{})
	s.mu.Unlock()
}

// Buckets exposes the persisted-todo bucket cache for invalidation.
func (s *Service) Buckets() *cache.Store[[]*models.Todo] {
	return s.buckets
}

// CacheStats reports the virtual cache's hit/miss counters and entry count.
func (s *Service) CacheStats() (hits, misses, size int) {
	return s.vcache.Stats()
}

func (s *Service) loadRules(ctx context.Context) ([]*models.RecurringTodo, error) {
	s.mu.Lock()
	if s.rulesLoaded {
		rules := s.ruleList
		s.mu.Unlock()
		return rules, nil
	}
	s.mu.Unlock()

	rules, err := s.rules.All(ctx)
	if err != nil {
		// Transient per policy: if a stale list exists, keep serving it.
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.rulesLoaded {
			log.Printf("smart: rule refresh failed, serving cached rules: %v", err)
			return s.ruleList, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.ruleList = rules
	s.rulesLoaded = true
	s.mu.Unlock()
	return rules, nil
}

func (s *Service) loadBucket(ctx context.Context, b cache.Bucket) ([]*models.Todo, error) {
	if cached, ok := s.buckets.Get(b.Key()); ok {
		return cached, nil
	}
	rows, err := s.todos.ByMonth(ctx, b.Year, b.Month)
	if err != nil {
		return nil, err
	}
	s.buckets.Set(b.Key(), rows)
	return rows, nil
}

func (s *Service) withoutSuppressed(virtuals []*models.VirtualTodo) []*models.VirtualTodo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.suppressed) == 0 {
		return virtuals
	}
	kept := make([]*models.VirtualTodo, 0, len(virtuals))
	for _, v := range virtuals {
		if _, drop := s.suppressed[v.ID]; !drop {
			kept = append(kept, v)
		}
	}
	return kept
}

func (s *Service) beginWindow(b cache.Bucket) windowToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.windows[b]
	if !ok {
		ws = &windowState{}
		s.windows[b] = ws
	}
	ws.generation++
	ws.phase = FetchingRules
	return windowToken{bucket: b, generation: ws.generation}
}

func (s *Service) advanceWindow(tok windowToken, phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.windows[tok.bucket]; ok && ws.generation == tok.generation {
		ws.phase = phase
	}
}

func (s *Service) abortWindow(tok windowToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.windows[tok.bucket]; ok && ws.generation == tok.generation {
		ws.phase = Unfetched
	}
}

func (s *Service) commitWindow(tok windowToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.windows[tok.bucket]
	if !ok || ws.generation != tok.generation {
		return false
	}
	ws.phase = Ready
	return true
}

// WindowPhase reports the current lifecycle phase of a bucket's window.
func (s *Service) WindowPhase(b cache.Bucket) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.windows[b]; ok {
		return ws.phase
	}
	return Unfetched
}
