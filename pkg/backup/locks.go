package backup

import (
	"sync"
)

// ScopeLocks serializes restores inside one process. A system restore
// excludes everything; owner restores exclude each other per owner and run
// concurrently across owners. The database-level equivalent is
// store.Tx.LockScope, which covers multiple processes.
type ScopeLocks struct {
	system sync.RWMutex

	mu     sync.Mutex
	owners map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func NewScopeLocks() *ScopeLocks {
	return &ScopeLocks{owners: make(map[string]*ownerLock)}
}

// LockOwner blocks until the owner's scope is free and returns the unlock
// function.
func (l *ScopeLocks) LockOwner(key string) (unlock func()) {
	l.system.RLock()

	l.mu.Lock()
	ol, ok := l.owners[key]
	if !ok {
		ol = &ownerLock{}
		l.owners[key] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.mu.Lock()
	return func() {
		ol.mu.Unlock()

		l.mu.Lock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.owners, key)
		}
		l.mu.Unlock()

		l.system.RUnlock()
	}
}

// LockSystem blocks until no other restore runs.
func (l *ScopeLocks) LockSystem() (unlock func()) {
	l.system.Lock()
	return l.system.Unlock
}
