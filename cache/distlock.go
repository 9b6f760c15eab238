package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// DistributedLockService serializes work across processes with redsync
type DistributedLockService struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewLockService creates a lock service on top of an existing Redis client.
func NewLockService(client *redis.Client, expiry time.Duration) *DistributedLockService {
	if expiry <= 0 {
		expiry = 10 * time.Second
	}
	return &DistributedLockService{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
	}
}

// AcquireLock tries to take lockName, retrying briefly before giving up.
// Contention is reported as ErrLockNotAcquired; Redis failures are returned
// as they are.
func (s *DistributedLockService) AcquireLock(ctx context.Context, lockName string) (*redsync.Mutex, error) {
	mutex := s.rs.NewMutex("lock:"+lockName,
		redsync.WithExpiry(s.expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, lockError(lockName, err)
	}
	return mutex, nil
}

func lockError(lockName string, err error) error {
	var (
		taken     *redsync.ErrTaken
		nodeTaken *redsync.ErrNodeTaken
	)
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) || errors.As(err, &nodeTaken) {
		return fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, lockName, err)
	}
	return fmt.Errorf("acquire lock %s: %w", lockName, err)
}

// WithLock runs action while holding lockName
func (s *DistributedLockService) WithLock(ctx context.Context, lockName string, action func() error) error {
	mutex, err := s.AcquireLock(ctx, lockName)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}()

	return action()
}
