package enrichment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kyra/pkg/domain"
)

// blockingRunner holds each run open until released, so tests can observe
// overlap behavior deterministically.
type blockingRunner struct {
	mu      sync.Mutex
	started chan id.CaseID
	release chan struct{}
	runs    []id.CaseID
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan id.CaseID, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(_ context.Context, caseID id.CaseID) error {
	r.mu.Lock()
	r.runs = append(r.runs, caseID)
	r.mu.Unlock()
	r.started <- caseID
	<-r.release
	return nil
}

func (r *blockingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func TestSchedulerRunsEachCaseAtMostOnceConcurrently(t *testing.T) {
	runner := newBlockingRunner()
	scheduler := NewScheduler(runner, NewMemoryLocker(), 5*time.Second, nil)
	caseID := id.NewCaseID()

	scheduler.Schedule(caseID)
	<-runner.started

	// A second trigger while the first run holds the lock must be dropped.
	scheduler.Schedule(caseID)
	scheduler.Schedule(caseID)

	close(runner.release)
	scheduler.Wait()

	assert.Equal(t, 1, runner.runCount())
}

func TestSchedulerAllowsDistinctCasesInParallel(t *testing.T) {
	runner := newBlockingRunner()
	scheduler := NewScheduler(runner, NewMemoryLocker(), 5*time.Second, nil)

	scheduler.Schedule(id.NewCaseID())
	scheduler.Schedule(id.NewCaseID())
	<-runner.started
	<-runner.started

	close(runner.release)
	scheduler.Wait()

	assert.Equal(t, 2, runner.runCount())
}

func TestSchedulerReleasesLockAfterRun(t *testing.T) {
	locker := NewMemoryLocker()
	runner := newBlockingRunner()
	close(runner.release)
	scheduler := NewScheduler(runner, locker, 5*time.Second, nil)
	caseID := id.NewCaseID()

	scheduler.Schedule(caseID)
	scheduler.Wait()

	acquired, err := locker.TryLock(context.Background(), caseID)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRedisLocker(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()
	caseID := id.NewCaseID()

	t.Run("mutual exclusion per case", func(t *testing.T) {
		acquired, err := locker.TryLock(ctx, caseID)
		require.NoError(t, err)
		assert.True(t, acquired)

		acquired, err = locker.TryLock(ctx, caseID)
		require.NoError(t, err)
		assert.False(t, acquired)

		other := id.NewCaseID()
		acquired, err = locker.TryLock(ctx, other)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("unlock frees the case", func(t *testing.T) {
		require.NoError(t, locker.Unlock(ctx, caseID))

		acquired, err := locker.TryLock(ctx, caseID)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("lock expires with its TTL", func(t *testing.T) {
		short := NewRedisLocker(client, time.Second)
		expiring := id.NewCaseID()

		acquired, err := short.TryLock(ctx, expiring)
		require.NoError(t, err)
		require.True(t, acquired)

		server.FastForward(2 * time.Second)

		acquired, err = short.TryLock(ctx, expiring)
		require.NoError(t, err)
		assert.True(t, acquired)
	})
}
