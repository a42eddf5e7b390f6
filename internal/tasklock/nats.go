package tasklock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/jetstream"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// DefaultBucket is the KV bucket holding task locks.
const DefaultBucket = "task_locks"

// NatsKVLock implements TaskLock on a JetStream KeyValue bucket. The
// bucket TTL bounds how long a stale lock survives a crashed holder;
// Create is the set-if-absent primitive that makes Acquire atomic.
type NatsKVLock struct {
	kv nats.KeyValue
}

// Ensure NatsKVLock implements TaskLock
var _ TaskLock = (*NatsKVLock)(nil)

// NewNatsKVLock ensures the lock bucket exists and returns a lock backed by it.
func NewNatsKVLock(ctx context.Context, js jetstream.ClientInterface, bucket string, ttl time.Duration) (*NatsKVLock, error) {
	kv, err := js.EnsureKeyValue(ctx, &nats.KeyValueConfig{
		Bucket:      bucket,
		Description: "distributed onboarding task locks",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to ensure lock bucket: %w", apperrors.ErrNATS, err)
	}
	return &NatsKVLock{kv: kv}, nil
}

// Acquire takes the lock if it is free.
func (l *NatsKVLock) Acquire(ctx context.Context, task, accountID string) (bool, error) {
	key := lockKey(task, accountID)
	// The value is informational only; existence of the key is the lock.
	value := strconv.FormatInt(utils.Now().Unix(), 10)

	_, err := l.kv.Create(key, []byte(value))
	if err != nil {
		if errors.Is(err, nats.ErrKeyExists) {
			observer.IncLockContended(task)
			logger.FromContext(ctx).Debug("Task lock already held",
				zap.String("task", task),
				zap.String("account_id", accountID))
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to acquire lock %s: %w", apperrors.ErrNATS, key, err)
	}

	observer.IncLockAcquired(task)
	logger.FromContext(ctx).Info("Task lock acquired",
		zap.String("task", task),
		zap.String("account_id", accountID))
	return true, nil
}

// Release frees the lock.
func (l *NatsKVLock) Release(ctx context.Context, task, accountID string) error {
	key := lockKey(task, accountID)

	err := l.kv.Delete(key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			// Already expired or never held
			return nil
		}
		return fmt.Errorf("%w: failed to release lock %s: %w", apperrors.ErrNATS, key, err)
	}

	logger.FromContext(ctx).Info("Task lock released",
		zap.String("task", task),
		zap.String("account_id", accountID))
	return nil
}
