package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency     = 5
	defaultShutdownTimeout = 8 * time.Second
)

// Worker consumes tasks from the queues in Queues.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

// NewWorker builds a stopped worker. Handlers are added with Handle before Start.
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:          Queues,
		Concurrency:     concurrency,
		ShutdownTimeout: defaultShutdownTimeout,
		Logger:          newAsynqLogger(log),
		LogLevel:        asynq.WarnLevel,
		// SkipRetry marks a final outcome the handler already logged
		IsFailure: func(err error) bool { return !errors.Is(err, asynq.SkipRetry) },
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.WarnContext(ctx, "task failed",
				slog.String("task_type", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Use(instrument)

	return &Worker{server: server, mux: mux, log: log}
}

// Handle routes taskType to h.
func (w *Worker) Handle(taskType string, h asynq.Handler) {
	w.mux.Handle(taskType, h)
}

// Start begins processing in background goroutines. Signal handling stays with the
// caller, which stops the worker with Stop.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start jobs worker: %w", err)
	}
	w.log.Info("jobs worker started")
	return nil
}

// Stop waits for in-flight tasks up to the shutdown timeout and stops the worker.
func (w *Worker) Stop() {
	w.server.Shutdown()
	w.log.Info("jobs worker stopped")
}

// asynqLogger sends asynq's own diagnostics to slog.
type asynqLogger struct {
	log *slog.Logger
}

var _ asynq.Logger = asynqLogger{}

func newAsynqLogger(log *slog.Logger) asynqLogger {
	return asynqLogger{log: log.With(slog.String("component", "asynq"))}
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }

// Fatal is only called by asynq on unrecoverable setup errors; it logs instead of
// exiting so the bot keeps serving with inline notifications.
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
