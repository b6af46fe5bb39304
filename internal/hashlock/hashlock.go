// Package hashlock provides a process-wide table of per-content-hash mutexes,
// the Go analogue of a ConcurrentHashMap<String,Object> used with
// computeIfAbsent and a synchronized block in the source this was ported
// from. At most one connection handler executes the critical section for a
// given hash at any instant.
package hashlock

import "sync"

// Table is a concurrent map from content hash to a lazily created mutex.
// Entries persist for the lifetime of the Table; eviction is not required
// for correctness and is not implemented.
type Table struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an empty Table.
func New() *Table {
	return &Table{locks: make(map[string]*sync.Mutex)}
}

// Acquire looks up or creates the mutex for hash and locks it, returning an
// unlock function the caller must invoke exactly once to release it.
func (t *Table) Acquire(hash string) (unlock func()) {
	t.mu.Lock()
	lock, ok := t.locks[hash]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[hash] = lock
	}
	t.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Len reports the number of distinct hashes with a materialized lock entry.
// Intended for diagnostics and tests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
