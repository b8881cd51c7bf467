package store

import "sync"

// registrationLocker serializes reconciliation and check-in work on a single
// registration. SQLite gives us conditional updates and unique indexes, but
// flows that must read state and report it back (original check-in timestamp,
// current day list) span several statements and need application-level
// mutual exclusion.
type registrationLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newRegistrationLocker() *registrationLocker {
	return &registrationLocker{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutex for one registration id and returns its release
// function. Entries are dropped once the last holder releases.
func (l *registrationLocker) lock(id string) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
