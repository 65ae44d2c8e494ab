package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	calls  int
	err    error
	result *Result
}

func (s *stubLimiter) Check(context.Context, string, int, time.Duration) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:42", UserKey(42))
	assert.Equal(t, "user:42:proof", ActionKey(42, ActionProof))
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		result *Result
		want   int
	}{
		{name: "nil", result: nil, want: 0},
		{name: "past", result: &Result{ResetAt: now.Add(-time.Second)}, want: 0},
		{name: "rounds up", result: &Result{ResetAt: now.Add(1500 * time.Millisecond)}, want: 2},
		{name: "whole", result: &Result{ResetAt: now.Add(time.Minute)}, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.RetryAfter(now))
		})
	}
}

func TestAdaptiveLimiter_SkipsPrimaryDuringCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	primary := &stubLimiter{err: errors.New("connection refused")}
	fallback := NewMemoryLimiter(testLogger())
	fallback.now = func() time.Time { return now }

	limiter := NewAdaptiveLimiter(primary, fallback, testLogger()).(*AdaptiveLimiter)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := limiter.Check(ctx, "k", 10, time.Minute)
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "k", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)

	now = now.Add(defaultCooldown + time.Second)
	primary.err = nil
	primary.result = &Result{Allowed: false, ResetAt: now.Add(time.Minute)}

	result, err := limiter.Check(ctx, "k", 10, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
	assert.Equal(t, 2, primary.calls)
}

func TestRedisLimiter_ResetFollowsOldestRequest(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	now := time.Now()
	limiter := NewRedisLimiter(client, testLogger()).(*RedisLimiter)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := limiter.Check(ctx, "reset", 2, time.Minute)
	require.NoError(t, err)

	now = now.Add(10 * time.Second)
	result, err := limiter.Check(ctx, "reset", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Zero(t, result.Remaining)

	result, err = limiter.Check(ctx, "reset", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 50, result.RetryAfter(now))
}
