package engine

import "sync"

// userLocks serializes turns per user. Concurrent requests for the
// same user queue behind the holder; requests for different users do
// not contend. Entries are reference counted and removed when idle so
// the map does not grow with the user population.
type userLocks struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{held: make(map[string]*lockEntry)}
}

// acquire blocks until the caller holds the lock for userID and
// returns the release func.
func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	e, ok := l.held[userID]
	if !ok {
		e = &lockEntry{}
		l.held[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.held, userID)
		}
		l.mu.Unlock()
	}
}
