package interpose

import "sync"

var (
	sessions   = make(map[Object]*Session)
	sessionsMu sync.RWMutex
)

// SessionFor returns the object session currently attached to obj, if
// any. Only the most recently constructed session per object is
// tracked; the mapping is a back-reference, not ownership, and is
// released when the session closes.
func SessionFor(obj Object) (*Session, bool) {
	sessionsMu.RLock()
	defer sessionsMu.RUnlock()
	s, ok := sessions[obj]
	return s, ok
}

// trackSession records the object -> session back-reference.
func trackSession(obj Object, s *Session) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	sessions[obj] = s
}

// untrackSession releases the back-reference, but only if it still
// points at s; a newer session on the same object is left alone.
func untrackSession(obj Object, s *Session) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	if sessions[obj] == s {
		delete(sessions, obj)
	}
}

// Reset clears the session back-reference registry.
// This is primarily useful for test isolation.
func Reset() {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	sessions = make(map[Object]*Session)
}
