package state

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/lock"
)

var errStorageFailure = errors.New("storage error")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	st, _ := args.Get(0).(*UserState)
	return st, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	return m.Called(ctx, userID, st).Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func inState(s State) func(*UserState) bool {
	return func(st *UserState) bool { return st.CurrentState == s }
}

func TestStateMachine_TransitionTo(t *testing.T) {
	const userID = int64(42)

	tests := []struct {
		name    string
		stored  *UserState
		loadErr error
		to      State
		saveErr error
		wantErr error
		saved   bool
	}{
		{name: "donation starts from idle", stored: &UserState{CurrentState: StateIdle}, to: StateAwaitingCurrency, saved: true},
		{name: "new user starts donation", loadErr: ErrStateNotFound, to: StateAwaitingCurrency, saved: true},
		{name: "amount after currency", stored: &UserState{CurrentState: StateAwaitingCurrency}, to: StateAwaitingAmount, saved: true},
		{name: "preset amount skips to proof", stored: &UserState{CurrentState: StateAwaitingCurrency}, to: StateAwaitingProof, saved: true},
		{name: "admin draft restarts mid donation", stored: &UserState{CurrentState: StateAwaitingProof}, to: StateAdminCardDetails, saved: true},
		{name: "proof without transaction", stored: &UserState{CurrentState: StateIdle}, to: StateAwaitingProof, wantErr: ErrInvalidTransition},
		{name: "card confirm skips currency", stored: &UserState{CurrentState: StateAdminCardDetails}, to: StateAdminCardConfirm, wantErr: ErrInvalidTransition},
		{name: "load failure", loadErr: errStorageFailure, to: StateAwaitingCurrency, wantErr: errStorageFailure},
		{name: "save failure", stored: &UserState{CurrentState: StateIdle}, to: StateAwaitingCurrency, saveErr: errStorageFailure, wantErr: errStorageFailure, saved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockStorage{}
			ms.On("GetState", mock.Anything, userID).Return(tt.stored, tt.loadErr).Once()
			if tt.saved {
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(inState(tt.to))).Return(tt.saveErr).Once()
			}

			err := NewStateMachine(ms, testLogger(), nil).TransitionTo(context.Background(), userID, tt.to, nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_RecordsOnlyPersistedChanges(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	RegisterTransitionRecorder(func(from, to string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, from+">"+to)
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	fsm := NewStateMachine(NewMemoryStorage(time.Hour), testLogger(), lock.NewLocal(time.Second))
	ctx := context.Background()

	require.NoError(t, fsm.TransitionTo(ctx, 1, StateAwaitingCurrency, nil))
	require.NoError(t, fsm.TransitionTo(ctx, 1, StateAwaitingCurrency, json.RawMessage(`{"recipient":2}`)))
	require.NoError(t, fsm.TransitionTo(ctx, 1, StateAwaitingAmount, nil))
	require.Error(t, fsm.TransitionTo(ctx, 1, StateAdminCardConfirm, nil))

	assert.Equal(t, []string{"idle>donate_awaiting_currency", "donate_awaiting_currency>donate_awaiting_amount"}, seen)
}

func TestStateMachine_SetAndClearBypassValidation(t *testing.T) {
	ms := &mockStorage{}
	ms.On("SetState", mock.Anything, int64(11), mock.MatchedBy(inState(StateAwaitingProof))).Return(nil).Once()
	ms.On("ClearState", mock.Anything, int64(11)).Return(errStorageFailure).Once()

	fsm := NewStateMachine(ms, testLogger(), nil)

	assert.NoError(t, fsm.SetState(context.Background(), 11, StateAwaitingProof, nil))
	assert.ErrorIs(t, fsm.ClearState(context.Background(), 11), errStorageFailure)
	ms.AssertExpectations(t)
}

// slowStorage holds writes long enough for a second writer to hit the lock.
type slowStorage struct {
	*MemoryStorage
	delay time.Duration
}

func (s slowStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	time.Sleep(s.delay)
	return s.MemoryStorage.SetState(ctx, userID, st)
}

func TestStateMachine_ConcurrentWritersAreLocked(t *testing.T) {
	client, _ := setupTestRedis(t)
	storage := slowStorage{MemoryStorage: NewMemoryStorage(time.Hour), delay: 100 * time.Millisecond}
	fsm := NewStateMachine(storage, testLogger(), lock.NewRedis(client, testLogger(), time.Second, 10*time.Millisecond))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- fsm.SetState(context.Background(), 77, StateAwaitingCurrency, nil)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, locked int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrStateLocked):
			locked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, locked)
}
