package billing

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes operations per bill ID. Financial mutations read,
// derive and write as one critical section; the optimistic version check in
// the repository stays as a second line of defense for multi-process
// deployments.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the lock for a key, blocking until available
func (k *keyedMutex) Lock(key uuid.UUID) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the lock for a key. Entries with no waiters are removed so
// the map does not grow with the number of bills ever touched.
func (k *keyedMutex) Unlock(key uuid.UUID) {
	k.mu.Lock()
	entry := k.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
