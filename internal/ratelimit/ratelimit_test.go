package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/swapforge/swapforge/internal/config"
	"go.uber.org/zap"
)

func TestBucketTTL(t *testing.T) {
	require.Equal(t, time.Minute, bucketTTL(1, 5))
	require.Equal(t, 2*time.Minute, bucketTTL(0.1, 6))
	require.Equal(t, time.Minute, bucketTTL(100, 100))
}

func TestJobSubmitLimiterFailsOpenWithoutRedis(t *testing.T) {
	limiter := NewJobSubmitLimiter(Params{
		Cfg: config.Config{JobSubmitRate: 1, JobSubmitBurst: 3},
		Log: zap.NewNop(),
	})
	require.True(t, limiter.Allow(context.Background(), 42))

	var nilLimiter *JobSubmitLimiter
	require.True(t, nilLimiter.Allow(context.Background(), 42))
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "key", 1, 1)
	require.Error(t, err)
}

func TestLockerNilGuards(t *testing.T) {
	require.Nil(t, NewLocker(nil))

	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "key", time.Minute)
	require.Error(t, err)
	require.NoError(t, locker.Release(context.Background(), "key", "token"))
}
