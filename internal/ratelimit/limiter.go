package ratelimit

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/swapforge/swapforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
}

// JobSubmitLimiter throttles job submission per user. Without redis it fails
// open: a single replica is already bounded by the synchronous settle path.
type JobSubmitLimiter struct {
	log    *zap.Logger
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewJobSubmitLimiter(p Params) *JobSubmitLimiter {
	return &JobSubmitLimiter{
		log:    p.Log.Named("ratelimit"),
		bucket: NewTokenBucket(p.Client),
		rate:   p.Cfg.JobSubmitRate,
		burst:  p.Cfg.JobSubmitBurst,
	}
}

// Allow reports whether the user may submit another job right now.
func (l *JobSubmitLimiter) Allow(ctx context.Context, userID snowflake.ID) bool {
	if l == nil || l.bucket == nil {
		return true
	}
	result, err := l.bucket.Allow(ctx, fmt.Sprintf("ratelimit:jobs:%s", userID), l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true
	}
	return result.Allowed
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewJobSubmitLimiter),
)
