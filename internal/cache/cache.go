package cache

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc produces a value for a key on cache miss.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Store is a string-keyed cache with single-flight fetch de-duplication.
// Every key is in one of three states: absent, pending (one in-flight fetch
// awaited by all callers), or resolved. A failed fetch reverts the key to
// absent so a later call retries. There is no eviction beyond explicit
// Invalidate and Clear; entries live for the session.
type Store[V any] struct {
	mu      sync.RWMutex
	values  map[string]V
	gens    map[string]uint64   // bumped by Invalidate, guards stale stores
	flights map[string]struct{} // keys with a fetch in flight
	epoch   uint64              // bumped by Clear

	group singleflight.Group
	stats Stats

	name string // for log fields
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Fetches int64
}

// New creates an empty store. The name only appears in log fields.
func New[V any](name string) *Store[V] {
	return &Store[V]{
		values:  make(map[string]V),
		gens:    make(map[string]uint64),
		flights: make(map[string]struct{}),
		name:    name,
	}
}

// GetOrFetch returns the resolved value for key, fetching it if absent.
// Concurrent callers for the same key share one in-flight fetch. The fetch
// result is discarded (not cached) if the key was invalidated or the store
// cleared while the fetch was in flight.
func (s *Store[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	s.mu.Lock()
	if v, ok := s.values[key]; ok {
		s.stats.Hits++
		s.mu.Unlock()
		return v, nil
	}
	s.stats.Misses++
	gen := s.gens[key]
	epoch := s.epoch
	s.flights[key] = struct{}{}
	s.mu.Unlock()

	res, err, shared := s.group.Do(key, func() (any, error) {
		s.mu.Lock()
		s.stats.Fetches++
		s.mu.Unlock()
		return fetch(ctx)
	})

	s.mu.Lock()
	delete(s.flights, key)
	s.mu.Unlock()

	if err != nil {
		log.Debug("cache fetch failed", "cache", s.name, "key", key, "error", err)
		var zero V
		return zero, err
	}

	v := res.(V)
	s.mu.Lock()
	if s.gens[key] == gen && s.epoch == epoch {
		s.values[key] = v
	} else {
		log.Debug("cache result discarded after invalidation", "cache", s.name, "key", key)
	}
	s.mu.Unlock()

	if shared {
		log.Debug("cache fetch shared", "cache", s.name, "key", key)
	}
	return v, nil
}

// Peek returns the resolved value for key without triggering a fetch.
func (s *Store[V]) Peek(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Invalidate makes key read as absent immediately. An in-flight fetch for
// the key is left to complete, but its result is not stored; a subsequent
// GetOrFetch starts a fresh fetch.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.gens[key]++
	s.mu.Unlock()
	s.group.Forget(key)
}

// Clear resets every key to absent. In-flight fetches complete but their
// results are not surfaced to callers that query after the clear.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	s.values = make(map[string]V)
	s.epoch++
	inflight := make([]string, 0, len(s.flights))
	for k := range s.flights {
		inflight = append(inflight, k)
	}
	s.mu.Unlock()

	for _, k := range inflight {
		s.group.Forget(k)
	}
}

// Len returns the number of resolved entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// GetStats returns a snapshot of the cache counters.
func (s *Store[V]) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
