package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_commands_total",
		Help: "Redis commands sent, by command name. Pipelines count once.",
	}, []string{"command"})

	commandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_command_errors_total",
		Help: "Redis commands that failed, excluding nil replies.",
	}, []string{"command"})

	commandSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_command_duration_seconds",
		Help:    "Redis round-trip latency by command name.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"command"})

	dialErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redis_dial_errors_total",
		Help: "Failed attempts to open a Redis connection.",
	})
)

// metricsHook times every command and pipeline the client runs.
type metricsHook struct{}

var _ goredis.Hook = metricsHook{}

func (metricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			dialErrors.Inc()
		}
		return conn, err
	}
}

func (metricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observe(cmd.Name(), time.Since(start), err)
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observe("pipeline", time.Since(start), err)
		return err
	}
}

func observe(command string, took time.Duration, err error) {
	commandsTotal.WithLabelValues(command).Inc()
	commandSeconds.WithLabelValues(command).Observe(took.Seconds())
	if err != nil && !errors.Is(err, goredis.Nil) {
		commandErrors.WithLabelValues(command).Inc()
	}
}
