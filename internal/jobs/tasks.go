package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeNotify        = "notify:send"
	TaskTypeStatsSnapshot = "stats:snapshot"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues are the worker queue priorities.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// NewNotifyTask wraps a JSON-serializable message for the notification handler.
func NewNotifyTask(message any, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode notify payload: %w", err)
	}

	opts := []asynq.Option{asynq.Queue(QueueCritical)}
	if maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(maxRetry))
	}

	return asynq.NewTask(TaskTypeNotify, payload, opts...), nil
}

// NewStatsSnapshotTask refreshes the donation gauges.
func NewStatsSnapshotTask() *asynq.Task {
	return asynq.NewTask(TaskTypeStatsSnapshot, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}
