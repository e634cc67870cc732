package logbook

import "sync"

// ownerLocks serializes imports per owner. Imports for different owners
// run concurrently.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// Lock blocks until the owner's lock is held and returns its release function.
func (l *ownerLocks) Lock(ownerID string) func() {
	l.mu.Lock()
	lk, ok := l.locks[ownerID]
	if !ok {
		lk = &ownerLock{}
		l.locks[ownerID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, ownerID)
		}
		l.mu.Unlock()
	}
}
