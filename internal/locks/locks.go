// Package locks provides the clock and per-session mutual exclusion the
// tracking services run under. Every compound read-modify-write on a
// session (start, pause, resume, stop, idle flush, screenshot capture,
// billing derivation) holds the session's lock for the whole sequence,
// the in-process equivalent of a row-level lock.
package locks

import (
	"sync"
	"time"
)

// Clock supplies wall-clock reads so services can be tested against a
// fixed time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Test helper.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// SessionLocker hands out one mutex per key. Locks are created lazily
// and retained; the key space (user ids, session ids) is small enough
// that entries are never reaped.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its release function.
// Callers defer the release so the lock spans the whole operation.
func (l *SessionLocker) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
