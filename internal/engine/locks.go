package engine

import (
	"context"
	"sync"

	"github.com/abhisek/masterypath/internal/knowledge"
)

// lockArena hands out one mutex per (user, objective) pair. Entries are
// reference counted and dropped once nobody holds or waits on them, so the
// arena stays proportional to in-flight work.
type lockArena struct {
	mu    sync.Mutex
	locks map[knowledge.Key]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[knowledge.Key]*keyLock)}
}

// acquire blocks until the pair's lock is held or ctx is done.
func (a *lockArena) acquire(ctx context.Context, key knowledge.Key) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	l, ok := a.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		a.locks[key] = l
	}
	l.refs++
	a.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.sem
				a.unref(key, l)
			})
		}, nil
	case <-ctx.Done():
		a.unref(key, l)
		return nil, ctx.Err()
	}
}

func (a *lockArena) unref(key knowledge.Key, l *keyLock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(a.locks, key)
	}
}

// size reports the number of live entries.
func (a *lockArena) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
