// Package cache provides a process-wide, invalidate-on-write store of hot
// entity snapshots keyed by identity.
//
// Snapshots are immutable value holders shared by pointer: invalidation
// replaces the map entry rather than mutating it, so holders of an already
// obtained snapshot keep a consistent (if stale) view. Concurrent misses
// for one identity collapse into a single load, and racing inserts
// deduplicate to a single shared instance.
package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Snapshot is an immutable, shared view of a cached value. Two readers that
// hit the cache between the same insert and invalidate observe the same
// Snapshot pointer.
type Snapshot[V any] struct {
	value V
}

// Value returns a copy of the cached value.
func (s *Snapshot[V]) Value() V { return s.value }

// Store maps identities to shared snapshots. The zero value is not usable;
// construct with New. The internal mutex guards the map only and is never
// held across I/O; per-identity load synchronization is provided by a
// singleflight group, so unrelated identities never contend on a load.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Snapshot[V]
	// version counts invalidations per identity, so a load that raced an
	// Invalidate can tell its value was superseded before it landed.
	version map[uuid.UUID]uint64
	group   singleflight.Group
}

// New creates an empty Store. Growth is unbounded; entries leave the store
// only through Invalidate.
func New[V any]() *Store[V] {
	return &Store[V]{
		entries: make(map[uuid.UUID]*Snapshot[V]),
		version: make(map[uuid.UUID]uint64),
	}
}

// Get returns the cached snapshot for id, or ok=false on a miss.
func (s *Store[V]) Get(id uuid.UUID) (*Snapshot[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.entries[id]
	return snapshot, ok
}

// Insert stores value under id and returns the shared snapshot. If another
// snapshot is already present the existing one wins and the new value is
// discarded, so concurrent readers racing a miss converge on one instance.
func (s *Store[V]) Insert(id uuid.UUID, value V) *Snapshot[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		return existing
	}

	snapshot := &Snapshot[V]{value: value}
	s.entries[id] = snapshot
	return snapshot
}

// Invalidate removes the snapshot for id. Every operation that mutates the
// underlying row must call this after commit and before returning success,
// so the next Get is a guaranteed miss.
func (s *Store[V]) Invalidate(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	s.version[id]++
}

// Fetch returns the cached snapshot for id, loading and inserting it on a
// miss. Concurrent fetches for the same identity share one load call.
//
// An Invalidate that lands while the load is in flight supersedes its
// result: the caller still receives the loaded snapshot, but it is not
// cached, so the next Get is a miss and the value is re-read.
func (s *Store[V]) Fetch(ctx context.Context, id uuid.UUID, load func(context.Context) (V, error)) (*Snapshot[V], error) {
	if snapshot, ok := s.Get(id); ok {
		return snapshot, nil
	}

	result, err, _ := s.group.Do(id.String(), func() (interface{}, error) {
		s.mu.RLock()
		snapshot, ok := s.entries[id]
		generation := s.version[id]
		s.mu.RUnlock()
		if ok {
			return snapshot, nil
		}

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return s.insertAt(id, value, generation), nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Snapshot[V]), nil
}

// insertAt stores value under id unless an invalidation landed after the
// recorded generation, in which case the snapshot is returned without being
// cached.
func (s *Store[V]) insertAt(id uuid.UUID, value V, generation uint64) *Snapshot[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		return existing
	}

	snapshot := &Snapshot[V]{value: value}
	if s.version[id] == generation {
		s.entries[id] = snapshot
	}
	return snapshot
}
