package knowledge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory knowledge collection. Storage order is
// newest-first: Add prepends. All methods are safe for concurrent use,
// though the expected access pattern is a single writer at a time.
type Store struct {
	mu    sync.RWMutex
	items []Item

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// today returns the current calendar date in DateLayout.
func (s *Store) today() string {
	return s.now().Format(DateLayout)
}

// Add assigns each entry a fresh unique ID and today's date, then
// prepends the batch to the collection, preserving batch order at the
// front. Any ID or LastUpdated supplied by the caller is overwritten.
// An empty batch is a no-op. Returns the entries as stored.
func (s *Store) Add(batch []Item) []Item {
	if len(batch) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]Item, len(batch))
	for i, it := range batch {
		it.ID = uuid.New().String()
		it.LastUpdated = s.today()
		created[i] = it
	}

	s.items = append(created, s.items...)

	// The prepended slice aliases created; hand callers their own copy.
	out := make([]Item, len(created))
	copy(out, created)
	return out
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// UpdateOptimizedAnswer replaces the optimized answer of the entry with
// the given ID and refreshes its LastUpdated date. Returns false when no
// entry matches; a missing ID is not an error.
func (s *Store) UpdateOptimizedAnswer(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].OptimizedAnswer = text
			s.items[i].LastUpdated = s.today()
			return true
		}
	}
	return false
}

// Remove deletes at most one entry by ID. Returns false when no entry
// matches; a missing ID is not an error.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Import loads a restored backup batch. Entries missing an ID get a
// fresh one; entries missing a date get today's. Field values present in
// the backup are preserved as-is so that an export/import round trip is
// lossless. The default mode is additive (restored entries are prepended
// without touching existing ones); replace drops the current collection
// first. Returns the number of entries imported.
func (s *Store) Import(items []Item, replace bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := make([]Item, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		if it.LastUpdated == "" {
			it.LastUpdated = s.today()
		}
		restored[i] = it
	}

	if replace {
		s.items = restored
	} else {
		s.items = append(restored, s.items...)
	}
	return len(restored)
}

// Items returns a snapshot of the collection in storage order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
