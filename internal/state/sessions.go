package state

import (
	"context"
	"errors"
	"log/slog"
)

// Sessions reads and writes typed steps through the StateMachine.
type Sessions struct {
	fsm StateMachine
	log *slog.Logger
}

func NewSessions(fsm StateMachine, log *slog.Logger) *Sessions {
	if log == nil {
		log = slog.Default()
	}
	return &Sessions{fsm: fsm, log: log}
}

// Load returns the user's current step. Missing or unreadable records yield Idle.
func (s *Sessions) Load(ctx context.Context, userID int64) (Step, error) {
	us, err := s.fsm.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return Idle{}, nil
		}
		return nil, err
	}

	step, err := DecodeStep(us)
	if err != nil {
		s.log.Warn("discarding unreadable session", slog.Int64("user_id", userID), slog.Any("error", err))
		return Idle{}, nil
	}
	return step, nil
}

// Save validates the transition into step and persists it. An empty Idle clears the record.
func (s *Sessions) Save(ctx context.Context, userID int64, step Step) error {
	if idle, ok := step.(Idle); ok && idle.Recipient == 0 {
		return s.fsm.ClearState(ctx, userID)
	}

	st, data, err := EncodeStep(step)
	if err != nil {
		return err
	}
	return s.fsm.TransitionTo(ctx, userID, st, data)
}

// Reset drops any stored step.
func (s *Sessions) Reset(ctx context.Context, userID int64) error {
	return s.fsm.ClearState(ctx, userID)
}
