// Package locks provides keyed lock sets: a non-blocking try-lock set and a
// blocking read/write set.
package locks

import "sync"

// Set tracks which keys are currently held. The zero value is ready to use.
type Set struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// TryLock acquires key and reports true, or reports false when another
// caller already holds it.
func (s *Set) TryLock(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held == nil {
		s.held = make(map[string]struct{})
	}
	if _, busy := s.held[key]; busy {
		return false
	}
	s.held[key] = struct{}{}
	return true
}

// Unlock releases key. Releasing a key that is not held is a no-op.
func (s *Set) Unlock(key string) {
	s.mu.Lock()
	delete(s.held, key)
	s.mu.Unlock()
}

// Held reports whether key is currently locked.
func (s *Set) Held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.held[key]
	return ok
}

// RWSet hands out one read/write mutex per key. Entries live only while
// held or awaited. The zero value is ready to use.
type RWSet struct {
	mu      sync.Mutex
	entries map[string]*rwEntry
}

type rwEntry struct {
	sync.RWMutex
	refs int
}

// Lock blocks until key is held exclusively and returns its release func.
func (s *RWSet) Lock(key string) func() {
	e := s.acquire(key)
	e.Lock()
	return func() {
		e.Unlock()
		s.release(key, e)
	}
}

// RLock blocks until key is held shared and returns its release func.
func (s *RWSet) RLock(key string) func() {
	e := s.acquire(key)
	e.RLock()
	return func() {
		e.RUnlock()
		s.release(key, e)
	}
}

func (s *RWSet) acquire(key string) *rwEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries == nil {
		s.entries = make(map[string]*rwEntry)
	}
	e, ok := s.entries[key]
	if !ok {
		e = &rwEntry{}
		s.entries[key] = e
	}
	e.refs++
	return e
}

func (s *RWSet) release(key string, e *rwEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(s.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (s *RWSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
