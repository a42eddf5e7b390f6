package tasklock

import (
	"context"
	"strings"
)

// TaskLock serializes long-running workflow tasks across service
// instances. A lock is scoped to a (task, account) pair and expires on
// its own after the backing store's TTL, so a crashed holder cannot
// wedge an account forever.
type TaskLock interface {
	// Acquire takes the lock if it is free. It returns false, without
	// error, when another holder already owns it.
	Acquire(ctx context.Context, task, accountID string) (bool, error)
	// Release frees the lock. Releasing a lock that is not held is a no-op.
	Release(ctx context.Context, task, accountID string) error
}

// lockKey builds the store key for a (task, account) pair. Characters
// outside the KV key alphabet are replaced so arbitrary account ids
// cannot produce invalid keys.
func lockKey(task, accountID string) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			case r == '-' || r == '_':
				return r
			default:
				return '_'
			}
		}, s)
	}
	return sanitize(task) + "." + sanitize(accountID)
}
