package enrichment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "kyra/pkg/domain"
)

// Locker grants at most one enrichment run per case at a time. Submit is
// guarded in the store, but the lock also shields against operational
// re-triggers (retries, manual requeues) racing an in-flight run.
type Locker interface {
	TryLock(ctx context.Context, caseID id.CaseID) (bool, error)
	Unlock(ctx context.Context, caseID id.CaseID) error
}

// Runner is the unit of work the scheduler dispatches.
type Runner interface {
	Run(ctx context.Context, caseID id.CaseID) error
}

// Scheduler dispatches enrichment runs fire-and-forget. Callers get no
// result; the run's outcome lands on the case itself.
type Scheduler struct {
	runner  Runner
	locker  Locker
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewScheduler constructs a Scheduler. Each run gets its own context bounded
// by timeout, detached from the submitting request.
func NewScheduler(runner Runner, locker Locker, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{runner: runner, locker: locker, timeout: timeout, logger: logger}
}

// Schedule starts an enrichment run for the case in the background.
func (s *Scheduler) Schedule(caseID id.CaseID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		acquired, err := s.locker.TryLock(ctx, caseID)
		if err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "enrichment lock failed", "case_id", caseID, "error", err)
			}
			return
		}
		if !acquired {
			if s.logger != nil {
				s.logger.InfoContext(ctx, "enrichment already running", "case_id", caseID)
			}
			return
		}
		defer func() {
			if err := s.locker.Unlock(ctx, caseID); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "enrichment unlock failed", "case_id", caseID, "error", err)
			}
		}()

		if err := s.runner.Run(ctx, caseID); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "enrichment run failed", "case_id", caseID, "error", err)
		}
	}()
}

// Wait blocks until all in-flight runs finish. Used on shutdown and in tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// MemoryLocker is the single-node Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[id.CaseID]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[id.CaseID]struct{})}
}

func (l *MemoryLocker) TryLock(_ context.Context, caseID id.CaseID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locks[caseID]; held {
		return false, nil
	}
	l.locks[caseID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, caseID id.CaseID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, caseID)
	return nil
}

// RedisLocker coordinates runs across replicas with SET NX and a TTL. The TTL
// caps lock lifetime if a replica dies mid-run; it must exceed the pipeline
// timeout or a slow run's lock can expire underneath it.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func lockKey(caseID id.CaseID) string {
	return "kyra:enrichment:lock:" + caseID.String()
}

func (l *RedisLocker) TryLock(ctx context.Context, caseID id.CaseID) (bool, error) {
	return l.client.SetNX(ctx, lockKey(caseID), "1", l.ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, caseID id.CaseID) error {
	return l.client.Del(ctx, lockKey(caseID)).Err()
}
