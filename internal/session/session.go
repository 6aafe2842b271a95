// Package session tracks per-conversation state for the recommendation loop,
// most importantly the set of artwork IDs already shown to the user.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Exclusions is an append-only set of artwork IDs. Order of insertion is
// preserved for display and debugging; membership checks are O(1).
type Exclusions struct {
	mu      sync.RWMutex
	ordered []string
	seen    map[string]struct{}
}

func NewExclusions() *Exclusions {
	return &Exclusions{seen: make(map[string]struct{})}
}

// Add records an ID. Adding an already present ID is a no-op.
func (e *Exclusions) Add(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.seen[id]; ok {
		return
	}
	e.seen[id] = struct{}{}
	e.ordered = append(e.ordered, id)
}

// Contains reports whether the ID has been recorded.
func (e *Exclusions) Contains(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.seen[id]
	return ok
}

// IDs returns the recorded IDs in insertion order.
func (e *Exclusions) IDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.ordered))
	copy(out, e.ordered)
	return out
}

// Len returns the number of recorded IDs.
func (e *Exclusions) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ordered)
}

// Session is one user conversation. The exclusion set only grows for the
// lifetime of the session, so a repeat mood never resurfaces an artwork the
// user has already seen.
type Session struct {
	ID         string
	Exclusions *Exclusions
}

func New() *Session {
	return &Session{
		ID:         uuid.New().String(),
		Exclusions: NewExclusions(),
	}
}

// Store keeps live sessions keyed by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers and returns a fresh session.
func (s *Store) Create() *Session {
	sess := New()
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with the given ID, or false if it does not exist.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
