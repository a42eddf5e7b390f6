package integration_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/jetstream"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/tasklock"
)

// TaskLockSuite exercises the KV-backed distributed lock against a live
// JetStream server, including the TTL expiry that the in-memory lock
// only simulates.
type TaskLockSuite struct {
	BaseIntegrationSuite
	client *jetstream.Client
}

func TestTaskLockSuite(t *testing.T) {
	suite.Run(t, new(TaskLockSuite))
}

func (s *TaskLockSuite) SetupSuite() {
	s.BaseIntegrationSuite.SetupSuite()

	client, err := jetstream.NewClient(s.NATSURL)
	s.Require().NoError(err, "failed to connect to NATS")
	s.client = client
}

func (s *TaskLockSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
	s.BaseIntegrationSuite.TearDownSuite()
}

// newLock builds a lock on a bucket unique to the test so runs never
// collide with each other or with a deployed service.
func (s *TaskLockSuite) newLock(ttl time.Duration) *tasklock.NatsKVLock {
	bucket := fmt.Sprintf("task_locks_it_%d", time.Now().UnixNano())
	lock, err := tasklock.NewNatsKVLock(s.Ctx, s.client, bucket, ttl)
	s.Require().NoError(err)
	return lock
}

func (s *TaskLockSuite) TestAcquireIsExclusive() {
	lock := s.newLock(time.Minute)

	ok, err := lock.Acquire(s.Ctx, "configure_nexus", "acct_lock")
	s.Require().NoError(err)
	s.True(ok)

	// Second holder is refused without error.
	ok, err = lock.Acquire(s.Ctx, "configure_nexus", "acct_lock")
	s.Require().NoError(err)
	s.False(ok)

	// A different account is an independent lock.
	ok, err = lock.Acquire(s.Ctx, "configure_nexus", "acct_other")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *TaskLockSuite) TestReleaseFreesTheLock() {
	lock := s.newLock(time.Minute)

	ok, err := lock.Acquire(s.Ctx, "configure_nexus", "acct_release")
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(lock.Release(s.Ctx, "configure_nexus", "acct_release"))

	ok, err = lock.Acquire(s.Ctx, "configure_nexus", "acct_release")
	s.Require().NoError(err)
	s.True(ok, "lock must be reacquirable after release")
}

func (s *TaskLockSuite) TestReleaseUnheldIsNoOp() {
	lock := s.newLock(time.Minute)
	s.Require().NoError(lock.Release(s.Ctx, "configure_nexus", "acct_never_held"))
}

func (s *TaskLockSuite) TestExpiredLockCanBeReacquired() {
	lock := s.newLock(time.Second)

	ok, err := lock.Acquire(s.Ctx, "configure_nexus", "acct_ttl")
	s.Require().NoError(err)
	s.True(ok)

	// The bucket TTL reclaims the key after the holder goes silent.
	s.Require().Eventually(func() bool {
		ok, err := lock.Acquire(s.Ctx, "configure_nexus", "acct_ttl")
		return err == nil && ok
	}, 10*time.Second, 500*time.Millisecond, "expired lock was never reclaimed")
}

func (s *TaskLockSuite) TestAccountIDsWithOddCharacters() {
	lock := s.newLock(time.Minute)

	ok, err := lock.Acquire(s.Ctx, "configure_nexus", "acct weird/id.with:stuff")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = lock.Acquire(s.Ctx, "configure_nexus", "acct weird/id.with:stuff")
	s.Require().NoError(err)
	s.False(ok, "sanitized keys must still collide for the same account")

	s.Require().NoError(lock.Release(s.Ctx, "configure_nexus", "acct weird/id.with:stuff"))
}
