package state

import (
	"context"
	"log/slog"
	"time"
)

// ExpireFunc runs before a stale state is cleared. Errors are logged and the state is
// cleared anyway.
type ExpireFunc func(ctx context.Context, state *UserState) error

// Cleaner clears sessions that have been idle longer than ttl on a schedule.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	onExpire ExpireFunc
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance. onExpire may be nil.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration, onExpire ExpireFunc) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
		onExpire: onExpire,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.ttl <= 0 || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			reason := ctx.Err()
			if reason != nil {
				c.log.Info("state cleaner stopped", slog.String("reason", reason.Error()))
			} else {
				c.log.Info("state cleaner stopped")
			}
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass and returns the number of cleared sessions.
func (c *Cleaner) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		c.log.Error("state cleaner scan failed", slog.Any("error", err))
		return 0
	}

	cleared := 0
	for _, st := range states {
		if ctx.Err() != nil {
			break
		}
		if st == nil || c.now().Sub(st.UpdatedAt) <= c.ttl {
			continue
		}

		if c.onExpire != nil {
			if err := c.onExpire(ctx, st); err != nil {
				c.log.Error("state cleaner expire hook failed", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			}
		}

		if err := c.storage.ClearState(ctx, st.UserID); err != nil {
			c.log.Error("state cleaner failed to clear state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}

		cleared++
		c.log.Info("state session cleared", slog.Int64("user_id", st.UserID), slog.String("state", string(st.CurrentState)))
	}

	return cleared
}
