package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Scheduler enqueues periodic tasks. Cron specs are evaluated in UTC and may also be
// "@every <duration>".
type Scheduler struct {
	scheduler *asynq.Scheduler
	entries   int
	log       *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &Scheduler{
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   newAsynqLogger(log),
			LogLevel: asynq.WarnLevel,
			PostEnqueueFunc: func(_ *asynq.TaskInfo, err error) {
				if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
					log.Warn("scheduled enqueue failed", slog.Any("error", err))
				}
			},
		}),
		log: log,
	}
}

// ScheduleStatsSnapshot refreshes the donation gauges on spec. An empty spec
// schedules nothing. At most one snapshot waits in the queue at a time.
func (s *Scheduler) ScheduleStatsSnapshot(spec string) error {
	if spec == "" {
		return nil
	}

	id, err := s.scheduler.Register(spec, NewStatsSnapshotTask(), asynq.Unique(time.Minute))
	if err != nil {
		return fmt.Errorf("schedule stats snapshot %q: %w", spec, err)
	}
	s.entries++

	s.log.Info("stats snapshot scheduled", slog.String("spec", spec), slog.String("entry_id", id))
	return nil
}

// Start runs the scheduler in the background. It is a no-op without entries.
func (s *Scheduler) Start() error {
	if s.entries == 0 {
		return nil
	}
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) Stop() {
	if s.entries > 0 {
		s.scheduler.Shutdown()
	}
}
