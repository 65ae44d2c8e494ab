package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_enqueued_total",
		Help: "Background tasks handed to the queue by type and result.",
	}, []string{"type", "result"})

	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Background tasks processed by the worker by type and result.",
	}, []string{"type", "result"})

	processingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobs_processing_seconds",
		Help:    "Time spent processing a background task.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

// instrument records the outcome of every task handled by the worker mux.
func instrument(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		processingSeconds.WithLabelValues(t.Type()).Observe(time.Since(start).Seconds())
		processedTotal.WithLabelValues(t.Type(), resultLabel(err)).Inc()
		return err
	})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
