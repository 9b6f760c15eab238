package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// scriptRunner is the subset of go-redis the limiter needs
type scriptRunner interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// slidingWindowScript records the request and trims the window in one round
// trip. It returns 1 when the request fits the window, 0 otherwise; rejected
// requests are not kept.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
if redis.call("ZCARD", key) >= limit then
	return 0
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window * 2)
return 1
`

// SlidingWindowLimiter allows at most limit requests per voter in any
// window, counted across every instance sharing the Redis.
type SlidingWindowLimiter struct {
	client scriptRunner
	window time.Duration
	limit  int
	now    func() time.Time
}

// NewSlidingWindowLimiter allows limit requests per voter in any window
func NewSlidingWindowLimiter(client scriptRunner, window time.Duration, limit int) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

func rateKey(voterID string) string { return keyPrefix + "rate:" + voterID }

// AllowVoter reports whether the voter may make another request now
func (l *SlidingWindowLimiter) AllowVoter(ctx context.Context, voterID string) (bool, error) {
	if l.client == nil {
		return false, ErrRedisNotAvailable
	}

	args := []interface{}{
		l.now().UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		uuid.NewString(),
	}
	n, err := l.client.Eval(ctx, slidingWindowScript, []string{rateKey(voterID)}, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", voterID, err)
	}
	return n == 1, nil
}
