package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(testLogger(), false)
	ctx := context.Background()

	tests := []struct {
		name      string
		err       error
		key       string
		retryable bool
		handled   bool
	}{
		{name: "nil", err: nil, handled: false},
		{name: "validation", err: NewValidationError("bad amount"), key: MsgInvalidInput, handled: true},
		{name: "wrapped database", err: fmt.Errorf("save: %w", NewDatabaseError(errors.New("conn reset"))), key: MsgTemporary, retryable: true, handled: true},
		{name: "not found", err: NewNotFoundError("card", nil), key: MsgNotFound, handled: true},
		{name: "rate limit", err: NewRateLimitError(30), key: MsgRateLimited, handled: true},
		{name: "plain error", err: errors.New("boom"), key: MsgGeneric, handled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, handled := h.Handle(ctx, tt.err)
			assert.Equal(t, tt.handled, handled)
			assert.Equal(t, tt.key, reply.MessageKey)
			assert.Equal(t, tt.retryable, reply.Retryable)
		})
	}

	reply, _ := h.Handle(ctx, NewRateLimitError(30))
	assert.Equal(t, []any{"seconds", 30}, reply.Args)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("no rows")
	err := NewNotFoundError("transaction", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "E600", err.Code)
	assert.Equal(t, "transaction not found", err.Error())
}

func TestRetryPolicy_Do(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}

	t.Run("retries retryable errors", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return NewExternalAPIError("telegram", errors.New("502"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		permanent := errors.New("blocked")
		err := policy.Do(context.Background(), func() error {
			calls++
			return permanent
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return NewDatabaseError(errors.New("down"))
		})
		assert.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := policy.Do(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var changes []string

	cb := NewCircuitBreaker("telegram", BreakerConfig{ErrorThreshold: 0.5, MinRequests: 4, OpenTimeout: time.Minute, HalfOpenMaxRequests: 2},
		func(name string, from, to State) {
			changes = append(changes, name+":"+from.String()+"->"+to.String())
		})
	cb.now = func() time.Time { return now }

	fail := func() error { return errors.New("fail") }
	ok := func() error { return nil }

	for i := 0; i < 4; i++ {
		_ = cb.Call(fail)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(ok), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{
		"telegram:closed->open",
		"telegram:open->half_open",
		"telegram:half_open->closed",
	}, changes)
}

func TestHandler_LowSeverityLogsWarning(t *testing.T) {
	var buf strings.Builder
	h := NewHandler(slog.New(slog.NewTextHandler(&buf, nil)), false)

	_, handled := h.Handle(context.Background(), NewValidationError("bad amount"))
	require.True(t, handled)
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	_, _ = h.Handle(context.Background(), errors.New("boom"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "code=unknown")
}
