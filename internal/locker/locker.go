// Package locker provides in-process exclusive locks keyed by card id.
// It is the serialization point for balance mutation: a transfer holds
// both card locks for its whole unit of work, and waiters block until the
// holder releases or their context expires.
package locker

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"

	"bankcards/internal/apperrors"
)

// KeyedLocker hands out one exclusive lock per key. Lock entries are
// created on demand and removed once no holder or waiter references them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// New creates an empty KeyedLocker.
func New() *KeyedLocker {
	return &KeyedLocker{locks: make(map[uuid.UUID]*entry)}
}

// Acquire blocks until the lock for key is held or ctx expires. On success
// it returns a release func that is safe to call more than once; on context
// expiry it returns a LockTimeout error and no lock is held.
func (l *KeyedLocker) Acquire(ctx context.Context, key uuid.UUID) (func(), error) {
	e := l.ref(key)

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.ch
				l.unref(key, e)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, apperrors.LockTimeout("timed out waiting for card lock")
	}
}

// TryAcquire takes the lock for key only if it is immediately free.
func (l *KeyedLocker) TryAcquire(key uuid.UUID) (func(), bool) {
	e := l.ref(key)

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.ch
				l.unref(key, e)
			})
		}
		return release, true
	default:
		l.unref(key, e)
		return nil, false
	}
}

// AcquirePair locks two keys in ascending id order regardless of argument
// order, so concurrent mirrored acquisitions (a,b) and (b,a) cannot
// deadlock. The returned release frees both locks.
func (l *KeyedLocker) AcquirePair(ctx context.Context, a, b uuid.UUID) (func(), error) {
	first, second := a, b
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	releaseFirst, err := l.Acquire(ctx, first)
	if err != nil {
		return nil, err
	}
	releaseSecond, err := l.Acquire(ctx, second)
	if err != nil {
		releaseFirst()
		return nil, err
	}

	return func() {
		releaseSecond()
		releaseFirst()
	}, nil
}

func (l *KeyedLocker) ref(key uuid.UUID) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *KeyedLocker) unref(key uuid.UUID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
