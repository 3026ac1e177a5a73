// ABOUTME: Ordered, append-mostly store of timeline entries
// ABOUTME: Indexed by originating action event id for O(1) correlation lookup

package timeline

import "sync"

// Store holds the timeline entries for one session. Appends keep arrival
// order; correlation mutates entries in place and never reorders. The store
// grows unboundedly for the life of a session — eviction is a deliberately
// deferred capacity decision.
type Store struct {
	mu      sync.RWMutex
	entries []*Entry
	index   map[int]*Entry // eventID -> entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{index: make(map[int]*Entry)}
}

// Append inserts an entry at the end of the timeline.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(e)
}

// ReplacePending atomically removes any pending entries and appends e.
// This guarantees at most one pending entry exists at any time.
func (s *Store) ReplacePending(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, cur := range s.entries {
		if cur.Pending {
			if cur.EventID != NoEventID {
				delete(s.index, cur.EventID)
			}
			continue
		}
		kept = append(kept, cur)
	}
	s.entries = kept
	s.appendLocked(e)
}

// Update applies fn to the entry with the given event id, under the store
// lock. Returns false when no entry matches.
func (s *Store) Update(eventID int, fn func(*Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[eventID]
	if !ok {
		return false
	}
	fn(e)
	return true
}

// FindByEventID returns a copy of the entry created by the given action id.
func (s *Store) FindByEventID(eventID int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.index[eventID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Clear empties the store. Used on session boundaries such as switching
// conversations.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.index = make(map[int]*Entry)
}

// Snapshot returns a copy of all entries in timeline order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// appendLocked inserts an entry and indexes its event id. Caller holds mu.
func (s *Store) appendLocked(e Entry) {
	cp := e
	s.entries = append(s.entries, &cp)
	if cp.EventID != NoEventID {
		s.index[cp.EventID] = &cp
	}
}
