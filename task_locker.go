package aipkit

import (
	"context"
	"errors"
	"sync"
)

// ErrTaskLockerClosed is returned when attempting to use a closed task locker
var ErrTaskLockerClosed = errors.New("task locker is closed")

// TaskLocker serializes mutations of a single task.
type TaskLocker interface {
	// Lock blocks until the lock for taskID is held or ctx is done.
	// The returned function releases the lock and is safe to call more than once.
	Lock(ctx context.Context, taskID string) (unlock func(), err error)
	// Close gracefully shuts down the task locker
	Close() error
}

// InMemoryTaskLocker is a per-task mutex table. Locks for distinct task ids never contend.
type InMemoryTaskLocker struct {
	mu     sync.Mutex
	locks  map[string]*taskLock
	closed bool
}

type taskLock struct {
	sem  chan struct{}
	refs int
}

// NewInMemoryTaskLocker creates a new in-memory task locker
func NewInMemoryTaskLocker() *InMemoryTaskLocker {
	return &InMemoryTaskLocker{
		locks: make(map[string]*taskLock),
	}
}

// Lock acquires the lock for the specified task
func (l *InMemoryTaskLocker) Lock(ctx context.Context, taskID string) (func(), error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrTaskLockerClosed
	}
	tl, ok := l.locks[taskID]
	if !ok {
		tl = &taskLock{sem: make(chan struct{}, 1)}
		l.locks[taskID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	select {
	case tl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(taskID, tl)
		return nil, ctx.Err()
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			<-tl.sem
			l.release(taskID, tl)
		})
	}
	return unlock, nil
}

func (l *InMemoryTaskLocker) release(taskID string, tl *taskLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 && l.locks[taskID] == tl {
		delete(l.locks, taskID)
	}
}

// Close rejects further Lock calls. Locks already held stay valid until released.
func (l *InMemoryTaskLocker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
