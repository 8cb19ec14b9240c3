package service

import (
	"sync"

	"github.com/google/uuid"
)

// pairKey identifies the one relationship row for two users independently of
// call direction.
type pairKey struct {
	Low  uuid.UUID
	High uuid.UUID
}

// canonicalPair orders two user IDs deterministically, lexicographically
// smaller UUID string first. Every lookup and creation path that must be
// direction-agnostic goes through this, which is what guarantees at most one
// relationship row per unordered pair.
func canonicalPair(a, b uuid.UUID) pairKey {
	if a.String() < b.String() {
		return pairKey{Low: a, High: b}
	}
	return pairKey{Low: b, High: a}
}

// pairLocker serializes mutating operations on a single user pair so that,
// for example, a send-request and a block on the same pair cannot interleave
// into two rows or a lost update. Locks are created on demand and removed
// when the last holder releases them.
type pairLocker struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocker() *pairLocker {
	return &pairLocker{locks: make(map[pairKey]*pairLock)}
}

// Lock acquires the mutex for the unordered pair {a, b}.
func (l *pairLocker) Lock(a, b uuid.UUID) {
	key := canonicalPair(a, b)

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &pairLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for the unordered pair {a, b}.
func (l *pairLocker) Unlock(a, b uuid.UUID) {
	key := canonicalPair(a, b)

	l.mu.Lock()
	entry := l.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
