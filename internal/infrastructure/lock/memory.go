package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockReleaseTimeout = 5 * time.Second

// MemoryLocker is an in-process Locker for tests and single-node setups
// without Postgres.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[uuid.UUID]bool)}
}

// TryAcquire takes the per-job slot, or reports it busy without waiting.
func (l *MemoryLocker) TryAcquire(_ context.Context, jobID uuid.UUID) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[jobID] {
		return nil, false, nil
	}
	l.held[jobID] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, jobID)
			l.mu.Unlock()
		})
	}
	return release, true, nil
}
