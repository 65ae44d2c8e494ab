package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Enqueuer is what producers need from the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client is the producer side of the asynq queue.
type Client struct {
	client *asynq.Client
	log    *slog.Logger
}

var _ Enqueuer = (*Client)(nil)

func NewClient(redisOpt asynq.RedisConnOpt, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{client: asynq.NewClient(redisOpt), log: log}
}

// Enqueue submits task and counts the attempt by task type and result.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	enqueuedTotal.WithLabelValues(task.Type(), resultLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	c.log.DebugContext(ctx, "task enqueued",
		slog.String("task_type", task.Type()),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return info, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
