// Package ratelimit throttles bot users with sliding windows kept in Redis or in memory.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// keyPrefix namespaces limiter keys in Redis.
const keyPrefix = "ratelimit:"

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected caller should wait, rounded up to whole seconds.
func (r *Result) RetryAfter(now time.Time) int {
	if r == nil || !r.ResetAt.After(now) {
		return 0
	}
	d := r.ResetAt.Sub(now)
	return int((d + time.Second - 1) / time.Second)
}

// Limiter describes a rate-limiting strategy.
// A rejected request is reported with Allowed false; errors are backend failures.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// UserKey is the key of the overall per-user budget.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// ActionKey is the key of one action budget of a user.
func ActionKey(userID int64, action string) string {
	return UserKey(userID) + ":" + action
}
