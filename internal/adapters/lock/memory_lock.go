package lock

import (
	"context"
	"sync"
)

// MemoryLock is an in-process PollLock
type MemoryLock struct {
	mu sync.Mutex
}

// NewMemoryLock creates a new in-process lock
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{}
}

// TryAcquire takes the lock if nobody holds it
func (l *MemoryLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
