package service

import (
	"sync"

	"github.com/google/uuid"
)

// leadLocks serializes work per lead inside one process. Entries are
// reference counted and dropped once no caller holds or waits on them.
type leadLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*leadLock
}

type leadLock struct {
	mu   sync.Mutex
	refs int
}

func newLeadLocks() *leadLocks {
	return &leadLocks{locks: make(map[uuid.UUID]*leadLock)}
}

// lock blocks until the caller owns leadID and returns the release func.
func (l *leadLocks) lock(leadID uuid.UUID) func() {
	l.mu.Lock()
	entry := l.locks[leadID]
	if entry == nil {
		entry = &leadLock{}
		l.locks[leadID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, leadID)
		}
		l.mu.Unlock()
	}
}

func (l *leadLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
