package tasklock

import (
	"context"
	"sync"
	"time"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// MemoryLock is an in-process TaskLock with TTL expiry. It serializes
// tasks within a single instance only, so it suits tests and local runs.
type MemoryLock struct {
	mu    sync.Mutex
	ttl   time.Duration
	locks map[string]time.Time // key -> expiry
}

// Ensure MemoryLock implements TaskLock
var _ TaskLock = (*MemoryLock)(nil)

// NewMemoryLock creates an in-process lock with the given TTL.
func NewMemoryLock(ttl time.Duration) *MemoryLock {
	return &MemoryLock{
		ttl:   ttl,
		locks: make(map[string]time.Time),
	}
}

// Acquire takes the lock if it is free or its previous holder's TTL expired.
func (l *MemoryLock) Acquire(ctx context.Context, task, accountID string) (bool, error) {
	key := lockKey(task, accountID)
	now := utils.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[key]; held && now.Before(expiry) {
		return false, nil
	}
	l.locks[key] = now.Add(l.ttl)
	return true, nil
}

// Release frees the lock.
func (l *MemoryLock) Release(ctx context.Context, task, accountID string) error {
	key := lockKey(task, accountID)

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, key)
	return nil
}
