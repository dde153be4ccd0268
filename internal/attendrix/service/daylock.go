package service

import (
	"context"
	"sync"
)

// KeyedLock provides a per-key exclusive critical section with bounded
// wait.  The scan path holds a (userID, day) key across its
// read-decide-append sequence so two concurrent scans for the same person
// cannot both observe an empty day and both append a check-in.
//
// Waiting is bounded by the caller's context; a timed-out waiter gets the
// context error and the lock state stays clean.
type KeyedLock struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{} // capacity 1
	refs int
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{held: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's lock is held or ctx expires.  On success
// it returns the release function; the caller must invoke it exactly once.
func (l *KeyedLock) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e := l.held[key]
	if e == nil {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.held[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.unref(key, e)
		}, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}
}

func (l *KeyedLock) unref(key string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.held, key)
	}
	l.mu.Unlock()
}
