package scheduler

import (
	"context"
	"time"

	"awards-voting-backend/config"

	"go.uber.org/zap"
)

const (
	TaskCloseExpired = "close_expired_sessions"
	TaskPurgeCache   = "purge_cache"
	TaskPurgeLimiter = "purge_rate_limiters"
	TaskDeadLetters  = "retry_dead_letters"
)

const (
	limiterIdle    = 30 * time.Minute
	deadLetterSpec = "30 */10 * * * *"
	jobTimeout     = 30 * time.Second
)

type SessionCloser interface {
	CloseExpiredSessions(ctx context.Context) (int, error)
}

type CachePurger interface {
	PurgeExpired() int
}

type LimiterPurger interface {
	PurgeIdle(idle time.Duration) int
}

type DeadLetterRetrier interface {
	RetryDeadLetters(ctx context.Context) (int, error)
}

// Jobs lists the components with periodic maintenance. Nil fields are skipped.
type Jobs struct {
	Sessions    SessionCloser
	Cache       CachePurger
	Limiter     LimiterPurger
	DeadLetters DeadLetterRetrier
}

// Register schedules the maintenance tasks enabled by cfg
func Register(s *Scheduler, cfg config.SchedConfig, jobs Jobs) error {
	var tasks []*Task

	if cfg.AutoCloseExpired && jobs.Sessions != nil {
		tasks = append(tasks, &Task{
			Name:     TaskCloseExpired,
			Schedule: cfg.AutoCloseSpec,
			Timeout:  jobTimeout,
			Run: func(ctx context.Context) error {
				n, err := jobs.Sessions.CloseExpiredSessions(ctx)
				if n > 0 {
					s.logger.Info("closed expired sessions", zap.Int("count", n))
				}
				return err
			},
		})
	}

	if jobs.Cache != nil {
		tasks = append(tasks, &Task{
			Name:     TaskPurgeCache,
			Schedule: cfg.CachePurgeSpec,
			Run: func(context.Context) error {
				if n := jobs.Cache.PurgeExpired(); n > 0 {
					s.logger.Debug("purged cache entries", zap.Int("count", n))
				}
				return nil
			},
		})
	}

	if jobs.Limiter != nil {
		tasks = append(tasks, &Task{
			Name:     TaskPurgeLimiter,
			Schedule: cfg.CachePurgeSpec,
			Run: func(context.Context) error {
				jobs.Limiter.PurgeIdle(limiterIdle)
				return nil
			},
		})
	}

	if jobs.DeadLetters != nil {
		tasks = append(tasks, &Task{
			Name:     TaskDeadLetters,
			Schedule: deadLetterSpec,
			Timeout:  jobTimeout,
			Run: func(ctx context.Context) error {
				n, err := jobs.DeadLetters.RetryDeadLetters(ctx)
				if n > 0 {
					s.logger.Info("requeued dead letters", zap.Int("count", n))
				}
				return err
			},
		})
	}

	for _, task := range tasks {
		if err := s.Schedule(task); err != nil {
			return err
		}
	}
	return nil
}
