// Package lock provides keyed mutual exclusion, either in process or across
// instances through Redis.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a lock could not be acquired before the wait deadline.
var ErrTimeout = errors.New("lock wait timeout")

// Unlock releases a held lock. It is safe to call once.
type Unlock func()

// Locker acquires exclusive access to a named key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

const (
	DefaultTTL           = 5 * time.Second
	DefaultWait          = 3 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)
