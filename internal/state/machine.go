package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/Proton-105/donation-bot/internal/lock"
)

const lockKeyPrefix = "state:"

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

type transitionFunc func(from, to string)

var transitionRecorder atomic.Pointer[transitionFunc]

// RegisterTransitionRecorder installs an observer of state changes; nil removes it.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder.Store(nil)
		return
	}
	fn := transitionFunc(recorder)
	transitionRecorder.Store(&fn)
}

func recordTransition(from, to State) {
	if fn := transitionRecorder.Load(); fn != nil {
		(*fn)(string(from), string(to))
	}
}

// StateMachine guards per-user state writes with a lock and validates transitions.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state State, data json.RawMessage) error
	TransitionTo(ctx context.Context, userID int64, newState State, data json.RawMessage) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	log     *slog.Logger
	locker  lock.Locker
}

// NewStateMachine creates a FSM controller. A nil locker disables write locking.
func NewStateMachine(storage Storage, log *slog.Logger, locker lock.Locker) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log,
		locker:  locker,
	}
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// SetState writes a state without transition validation.
func (m *machine) SetState(ctx context.Context, userID int64, state State, data json.RawMessage) error {
	unlock, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.save(ctx, userID, state, data)
}

// TransitionTo moves the user to newState when the transition table allows it. A user
// without a stored state is treated as idle.
func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State, data json.RawMessage) error {
	unlock, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	current := StateIdle
	stored, err := m.storage.GetState(ctx, userID)
	switch {
	case errors.Is(err, ErrStateNotFound):
	case err != nil:
		return err
	case stored != nil:
		current = stored.CurrentState
	}

	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("invalid state transition",
			slog.Int64("user_id", userID),
			slog.String("from", string(current)),
			slog.String("to", string(newState)),
		)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, newState)
	}

	if err := m.save(ctx, userID, newState, data); err != nil {
		return err
	}
	if current != newState {
		recordTransition(current, newState)
	}
	return nil
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	unlock, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.storage.ClearState(ctx, userID)
}

func (m *machine) save(ctx context.Context, userID int64, state State, data json.RawMessage) error {
	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		CurrentState: state,
		Data:         data,
	})
}

func (m *machine) lock(ctx context.Context, userID int64) (lock.Unlock, error) {
	if m.locker == nil {
		return func() {}, nil
	}

	unlock, err := m.locker.Lock(ctx, lockKeyPrefix+strconv.FormatInt(userID, 10))
	if errors.Is(err, lock.ErrTimeout) {
		m.log.Warn("user state lock already held", slog.Int64("user_id", userID))
		return nil, ErrStateLocked
	}
	if err != nil {
		m.log.Error("failed to acquire user state lock", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return unlock, nil
}
