package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/donation-bot/internal/jobs"
)

// QueuedNotifier hands messages to the asynq worker. When enqueueing fails the
// message is sent through the fallback notifier instead.
type QueuedNotifier struct {
	queue    jobs.Enqueuer
	fallback Notifier
	maxRetry int
	log      *slog.Logger
}

var _ Notifier = (*QueuedNotifier)(nil)

func NewQueuedNotifier(queue jobs.Enqueuer, fallback Notifier, maxRetry int, log *slog.Logger) *QueuedNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &QueuedNotifier{queue: queue, fallback: fallback, maxRetry: maxRetry, log: log}
}

func (q *QueuedNotifier) Notify(ctx context.Context, msg Message) error {
	task, err := jobs.NewNotifyTask(msg, q.maxRetry)
	if err != nil {
		return err
	}

	info, err := q.queue.Enqueue(ctx, task)
	if err == nil {
		q.log.DebugContext(ctx, "notification queued",
			slog.String("task_id", info.ID),
			slog.Int64("chat_id", msg.ChatID),
		)
		return nil
	}

	q.log.WarnContext(ctx, "failed to enqueue notification, sending directly",
		slog.Int64("chat_id", msg.ChatID),
		slog.Any("error", err),
	)
	if q.fallback == nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return q.fallback.Notify(ctx, msg)
}

// TaskHandler processes queued notifications on the worker.
type TaskHandler struct {
	notifier Notifier
	log      *slog.Logger
}

func NewTaskHandler(notifier Notifier, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskHandler{notifier: notifier, log: log}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		h.log.ErrorContext(ctx, "notify: failed to decode payload",
			slog.String("task_type", t.Type()),
			slog.Any("error", err),
		)
		return fmt.Errorf("decode notification: %w", asynq.SkipRetry)
	}

	err := h.notifier.Notify(ctx, msg)
	if errors.Is(err, ErrUndeliverable) {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}
