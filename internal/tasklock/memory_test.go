package tasklock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock_MutualExclusion(t *testing.T) {
	lock := NewMemoryLock(time.Minute)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "configure_nexus", "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquisition of the same pair must be refused without error
	ok, err = lock.Acquire(ctx, "configure_nexus", "acct-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different account is independent
	ok, err = lock.Acquire(ctx, "configure_nexus", "acct-2")
	require.NoError(t, err)
	assert.True(t, ok)

	// A different task on the same account is independent too
	ok, err = lock.Acquire(ctx, "start_crawl", "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLock_ReleaseFreesLock(t *testing.T) {
	lock := NewMemoryLock(time.Minute)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "configure_nexus", "acct-1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "configure_nexus", "acct-1"))

	ok, err = lock.Acquire(ctx, "configure_nexus", "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLock_ReleaseUnheldIsNoop(t *testing.T) {
	lock := NewMemoryLock(time.Minute)
	assert.NoError(t, lock.Release(context.Background(), "configure_nexus", "acct-unknown"))
}

func TestMemoryLock_TTLExpiry(t *testing.T) {
	lock := NewMemoryLock(20 * time.Millisecond)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "configure_nexus", "acct-1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	// Expired lock can be taken by a new holder
	ok, err = lock.Acquire(ctx, "configure_nexus", "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLock_ConcurrentAcquire(t *testing.T) {
	lock := NewMemoryLock(time.Minute)
	ctx := context.Background()

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := lock.Acquire(ctx, "configure_nexus", "acct-1")
			require.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one goroutine should win the lock")
}

func TestLockKeySanitizesInput(t *testing.T) {
	key := lockKey("configure_nexus", "acct:weird/id with spaces")
	assert.Equal(t, "configure_nexus.acct_weird_id_with_spaces", key)
}
