package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/jobs"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

type recordingNotifier struct {
	sent []Message
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

var _ jobs.Enqueuer = (*fakeQueue)(nil)

func TestQueuedNotifier_Enqueues(t *testing.T) {
	queue := &fakeQueue{}
	fallback := &recordingNotifier{}
	n := NewQueuedNotifier(queue, fallback, 5, testLogger())

	msg := Message{ChatID: 42, Text: "approved"}
	require.NoError(t, n.Notify(context.Background(), msg))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, jobs.TaskTypeNotify, queue.tasks[0].Type())

	var decoded Message
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &decoded))
	assert.Equal(t, msg, decoded)
	assert.Empty(t, fallback.sent)
}

func TestQueuedNotifier_FallsBackWhenQueueFails(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	fallback := &recordingNotifier{}
	n := NewQueuedNotifier(queue, fallback, 5, testLogger())

	require.NoError(t, n.Notify(context.Background(), Message{ChatID: 1, Text: "x"}))
	assert.Len(t, fallback.sent, 1)

	n = NewQueuedNotifier(queue, nil, 5, testLogger())
	assert.Error(t, n.Notify(context.Background(), Message{ChatID: 1, Text: "x"}))
}

func TestTaskHandler(t *testing.T) {
	payload, err := json.Marshal(Message{ChatID: 7, Text: "hi"})
	require.NoError(t, err)

	t.Run("delivers", func(t *testing.T) {
		target := &recordingNotifier{}
		h := NewTaskHandler(target, testLogger())

		require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeNotify, payload)))
		require.Len(t, target.sent, 1)
		assert.Equal(t, int64(7), target.sent[0].ChatID)
	})

	t.Run("undeliverable skips retry", func(t *testing.T) {
		h := NewTaskHandler(&recordingNotifier{err: ErrUndeliverable}, testLogger())

		err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeNotify, payload))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("transient failure retries", func(t *testing.T) {
		h := NewTaskHandler(&recordingNotifier{err: errors.New("timeout")}, testLogger())

		err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeNotify, payload))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("bad payload", func(t *testing.T) {
		h := NewTaskHandler(&recordingNotifier{}, testLogger())

		err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeNotify, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}
