package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdown_RunsStagesInOrder(t *testing.T) {
	s := NewShutdown(testLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	s.Register(StageStorage, "postgres", record("postgres"))
	s.Register(StageTelemetry, "sentry", record("sentry"))
	s.Register(StageIngress, "telegram", record("telegram"))
	s.Register(StageWorkers, "asynq", record("asynq"))
	s.Register(StageIngress, "nil", nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"telegram", "asynq", "postgres", "sentry"}, order)

	require.NoError(t, s.Execute(context.Background()))
	assert.Len(t, order, 4)
}

func TestShutdown_JoinsErrorsAndKeepsGoing(t *testing.T) {
	s := NewShutdown(testLogger())
	boom := errors.New("boom")
	closed := false

	s.Register(StageIngress, "http", func(context.Context) error { return boom })
	s.Register(StageStorage, "redis", func(context.Context) error {
		closed = true
		return nil
	})

	err := s.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "http")
	assert.True(t, closed)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "ingress", StageIngress.String())
	assert.Equal(t, "telemetry", StageTelemetry.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
