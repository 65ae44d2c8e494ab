// Package state keeps the per-user conversation state of the bot.
package state

import "context"

// Storage persists one UserState per Telegram user. GetState reports a missing or
// expired entry as ErrStateNotFound.
type Storage interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state *UserState) error
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates lists every live state; the cleaner and the gauges walk it.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

var (
	_ Storage = (*RedisStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
