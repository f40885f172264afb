package syncer

import (
	"context"
	"sync"
)

// Locker serializes runs per source. Concurrent runs against the same source
// would race on the run ledger and hammer the upstream.
type Locker interface {
	Acquire(ctx context.Context, source string) (bool, error)
	Release(ctx context.Context, source string)
}

// MemoryLocker is the in-process fallback used when Redis is not configured.
// It only protects against concurrent runs inside one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]bool{}}
}

func (l *MemoryLocker) Acquire(_ context.Context, source string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[source] {
		return false, nil
	}
	l.held[source] = true
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, source)
}
