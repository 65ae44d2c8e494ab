package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	client, _ := setupTestRedis(t)

	return map[string]Storage{
		"redis":  NewRedisStorage(client, testLogger(), time.Hour),
		"memory": NewMemoryStorage(time.Hour),
	}
}

func TestStorage_Contract(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := storage.GetState(ctx, 999)
			assert.ErrorIs(t, err, ErrStateNotFound)

			in := &UserState{UserID: 123, CurrentState: StateAwaitingAmount, Data: json.RawMessage(`{"recipient":55,"currency":"USD"}`)}
			require.NoError(t, storage.SetState(ctx, 123, in))
			assert.False(t, in.UpdatedAt.IsZero())

			got, err := storage.GetState(ctx, 123)
			require.NoError(t, err)
			assert.Equal(t, StateAwaitingAmount, got.CurrentState)
			assert.JSONEq(t, string(in.Data), string(got.Data))

			require.NoError(t, storage.SetState(ctx, 124, &UserState{UserID: 124, CurrentState: StateIdle}))
			all, err := storage.GetAllStates(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			require.NoError(t, storage.ClearState(ctx, 123))
			_, err = storage.GetState(ctx, 123)
			assert.ErrorIs(t, err, ErrStateNotFound)
		})
	}
}

func TestRedisStorage_ExpiresAndSkipsGarbage(t *testing.T) {
	client, mr := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), 30*time.Minute)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.SetState(ctx, id, &UserState{UserID: id, CurrentState: StateAwaitingCurrency}))
	}
	assert.Equal(t, 30*time.Minute, mr.TTL("user:state:1"))

	require.NoError(t, mr.Set("user:state:4", "{broken"))
	all, err := storage.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = storage.GetState(ctx, 4)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrStateNotFound)

	mr.FastForward(31 * time.Minute)
	_, err = storage.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
}
