package ingestion

import (
	"context"
	"sync"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

// RunLock serializes ingestion per source. At most one run may hold a
// source's lock; runs for different sources proceed concurrently. The
// distributed implementation lives in infrastructure; MemoryRunLock covers
// single-process deployments and tests.
type RunLock interface {
	// Acquire takes the lock for a source. Returns
	// shared.ErrRunInProgress when another run holds it.
	Acquire(ctx context.Context, code ingestion.SourceCode) (RunLease, error)
}

// RunLease is one held per-source lock
type RunLease interface {
	// Release frees the lock
	Release(ctx context.Context) error
}

// MemoryRunLock is an in-process RunLock
type MemoryRunLock struct {
	mu   sync.Mutex
	held map[ingestion.SourceCode]bool
}

// NewMemoryRunLock creates a MemoryRunLock
func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{held: make(map[ingestion.SourceCode]bool)}
}

// Acquire takes the lock for a source
func (l *MemoryRunLock) Acquire(_ context.Context, code ingestion.SourceCode) (RunLease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[code] {
		return nil, shared.ErrRunInProgress
	}
	l.held[code] = true
	return &memoryRunLease{lock: l, code: code}, nil
}

type memoryRunLease struct {
	lock *MemoryRunLock
	code ingestion.SourceCode
	once sync.Once
}

// Release frees the lock
func (le *memoryRunLease) Release(_ context.Context) error {
	le.once.Do(func() {
		le.lock.mu.Lock()
		delete(le.lock.held, le.code)
		le.lock.mu.Unlock()
	})
	return nil
}

var _ RunLock = (*MemoryRunLock)(nil)
