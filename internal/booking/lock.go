package booking

import (
    "context"
    "sync"
)

// Locker serialises admissions per resource.  It narrows contention in
// front of the store transaction, which remains the authority.
type Locker interface {
    Lock(ctx context.Context, resourceID uint64) (unlock func(), err error)
}

// LocalLocker is an in-process Locker keyed by resource id.
type LocalLocker struct {
    mu    sync.Mutex
    locks map[uint64]*resourceLock
}

type resourceLock struct {
    ch   chan struct{}
    refs int
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
    return &LocalLocker{locks: make(map[uint64]*resourceLock)}
}

// Lock blocks until the resource is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, resourceID uint64) (func(), error) {
    l.mu.Lock()
    rl, ok := l.locks[resourceID]
    if !ok {
        rl = &resourceLock{ch: make(chan struct{}, 1)}
        l.locks[resourceID] = rl
    }
    rl.refs++
    l.mu.Unlock()

    select {
    case rl.ch <- struct{}{}:
    case <-ctx.Done():
        l.release(resourceID, rl)
        return nil, ctx.Err()
    }
    var once sync.Once
    return func() {
        once.Do(func() {
            <-rl.ch
            l.release(resourceID, rl)
        })
    }, nil
}

func (l *LocalLocker) release(resourceID uint64, rl *resourceLock) {
    l.mu.Lock()
    rl.refs--
    if rl.refs == 0 {
        delete(l.locks, resourceID)
    }
    l.mu.Unlock()
}
