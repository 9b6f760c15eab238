package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the per-voter token bucket settings
type RateLimiterConfig struct {
	Enabled bool    `json:"enabled"`
	Rate    float64 `json:"rate"`
	Burst   int     `json:"burst"`
}

// RateLimiterStats is the snapshot served to operators
type RateLimiterStats struct {
	TotalRequests    int64             `json:"totalRequests"`
	AllowedRequests  int64             `json:"allowedRequests"`
	RejectedRequests int64             `json:"rejectedRequests"`
	TrackedVoters    int               `json:"trackedVoters"`
	UserRejections   map[string]int64  `json:"userRejections"`
	Config           RateLimiterConfig `json:"config"`
}

// SharedLimiter counts requests across instances, e.g. in Redis
type SharedLimiter interface {
	AllowVoter(ctx context.Context, voterID string) (bool, error)
}

type voterLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// VoterRateLimiter throttles requests per X-User-ID with one token bucket per voter
type VoterRateLimiter struct {
	cfg    RateLimiterConfig
	clock  clock.Clock
	shared SharedLimiter
	log    *zap.Logger

	mu       sync.Mutex
	limiters map[string]*voterLimiter
	total    int64
	allowed  int64
	rejected int64
	byUser   map[string]int64
}

// NewVoterRateLimiter creates a limiter. A nil clock means the wall clock.
func NewVoterRateLimiter(cfg RateLimiterConfig, clk clock.Clock) *VoterRateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &VoterRateLimiter{
		cfg:      cfg,
		clock:    clk,
		limiters: make(map[string]*voterLimiter),
		byUser:   make(map[string]int64),
		log:      zap.NewNop(),
	}
}

// WithShared adds a cross-instance check after the local bucket. Errors
// from it are logged and the request is let through.
func (l *VoterRateLimiter) WithShared(shared SharedLimiter, log *zap.Logger) *VoterRateLimiter {
	l.shared = shared
	l.log = log.Named("rate_limit")
	return l
}

// Allow takes a token from the voter's bucket
func (l *VoterRateLimiter) Allow(voterID string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	entry, ok := l.limiters[voterID]
	if !ok {
		entry = &voterLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.limiters[voterID] = entry
	}
	entry.lastSeen = now

	if !entry.limiter.AllowN(now, 1) {
		l.rejected++
		l.byUser[voterID]++
		return false
	}
	l.allowed++
	return true
}

// Middleware rejects over-limit voters with 429. Requests without a voter
// id pass through; RequireVoter deals with them.
func (l *VoterRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := voterID(c)
		if !l.cfg.Enabled || id == "" {
			c.Next()
			return
		}
		if !l.Allow(id) || !l.allowShared(c.Request.Context(), id) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

func (l *VoterRateLimiter) allowShared(ctx context.Context, voterID string) bool {
	if l.shared == nil {
		return true
	}
	ok, err := l.shared.AllowVoter(ctx, voterID)
	if err != nil {
		l.log.Warn("shared rate limit check failed", zap.String("voter_id", voterID), zap.Error(err))
		return true
	}
	if !ok {
		l.mu.Lock()
		l.allowed--
		l.rejected++
		l.byUser[voterID]++
		l.mu.Unlock()
	}
	return ok
}

// PurgeIdle drops buckets not used for idle and returns how many were removed
func (l *VoterRateLimiter) PurgeIdle(idle time.Duration) int {
	cutoff := l.clock.Now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}

// Stats returns a copy of the counters
func (l *VoterRateLimiter) Stats() RateLimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	byUser := make(map[string]int64, len(l.byUser))
	for id, n := range l.byUser {
		byUser[id] = n
	}
	return RateLimiterStats{
		TotalRequests:    l.total,
		AllowedRequests:  l.allowed,
		RejectedRequests: l.rejected,
		TrackedVoters:    len(l.limiters),
		UserRejections:   byUser,
		Config:           l.cfg,
	}
}

// GetStats handles GET /admin/voting/rate-limit
func (l *VoterRateLimiter) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, l.Stats())
}
