package lifecycle

import "context"

// Stage orders shutdown hooks. Lower stages finish before higher ones start.
type Stage int

const (
	// StageIngress stops accepting updates and HTTP requests.
	StageIngress Stage = iota
	// StageWorkers drains background jobs, sweepers and queues.
	StageWorkers
	// StageStorage closes Redis and the database.
	StageStorage
	// StageTelemetry flushes error reporting and log files.
	StageTelemetry
)

func (s Stage) String() string {
	switch s {
	case StageIngress:
		return "ingress"
	case StageWorkers:
		return "workers"
	case StageStorage:
		return "storage"
	case StageTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Stage Stage
	Fn    func(ctx context.Context) error
}
