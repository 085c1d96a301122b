package state

import (
	"sync"
)

type entry struct {
	mu      sync.Mutex
	session *Session
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*entry
}

// NewMemoryStore constructs an in-memory Store. Sessions live until the process exits.
func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[int64]*entry),
	}
}

// entry returns the slot for a user, creating it under the write lock if needed.
func (m *memoryStore) entry(userID int64) *entry {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.entries[userID]; ok {
		return e
	}
	e = &entry{}
	m.entries[userID] = e
	return e
}

// Get returns a copy of the session for a user, or an idle session if none is stored.
func (m *memoryStore) Get(userID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[userID]
	if !ok || e.session == nil {
		return &Session{Data: make(map[string]any)}
	}
	return e.session.Clone()
}

// Put stores a copy of s for the user.
// Callers are expected to hold the user's lock.
func (m *memoryStore) Put(userID int64, s *Session) {
	if s == nil {
		s = &Session{}
	}
	cp := s.Clone()
	e := m.entry(userID)
	m.mu.Lock()
	e.session = cp
	m.mu.Unlock()
}

// Lock blocks until the user's lock is acquired.
func (m *memoryStore) Lock(userID int64) func() {
	e := m.entry(userID)
	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(e.mu.Unlock)
	}
}
