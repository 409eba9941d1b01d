package application

import "sync"

// matchLocks serializes read-modify-write sequences per match. Entries are
// reference counted and dropped once no goroutine holds or waits on them.
type matchLocks struct {
	mu      sync.Mutex
	entries map[string]*matchLockEntry
}

type matchLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newMatchLocks() *matchLocks {
	return &matchLocks{entries: make(map[string]*matchLockEntry)}
}

// Lock blocks until the caller owns matchID and returns the release function.
func (l *matchLocks) Lock(matchID string) func() {
	l.mu.Lock()
	entry, ok := l.entries[matchID]
	if !ok {
		entry = &matchLockEntry{}
		l.entries[matchID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.entries, matchID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *matchLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
