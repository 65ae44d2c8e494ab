package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultCooldown = 30 * time.Second

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Rate limit decisions by backend and result.",
	}, []string{"backend", "result"})

	backendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Redis failures seen by the rate limiter.",
	})
)

// AdaptiveLimiter prefers the shared Redis limiter. After a Redis failure it serves
// from the in-memory fallback for a cooldown, at half the configured limit since
// every instance then counts on its own.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
	cooldown time.Duration
	now      func() time.Time

	mu            sync.Mutex
	degradedUntil time.Time
}

// NewAdaptiveLimiter wraps primary with fallback.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
		cooldown: defaultCooldown,
		now:      time.Now,
	}
}

// Check returns ErrLimitExceeded together with the result when the request is rejected.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if !a.degraded() {
		result, err := a.primary.Check(ctx, key, limit, window)
		if err == nil {
			return decide("redis", result)
		}

		backendErrorsTotal.Inc()
		a.degrade()
		a.log.Warn("redis limiter failed, using in-memory fallback",
			slog.String("key", key),
			slog.Duration("cooldown", a.cooldown),
			slog.Any("error", err),
		)
	}

	result, err := a.fallback.Check(ctx, key, max(limit/2, 1), window)
	if err != nil {
		return result, err
	}
	return decide("fallback", result)
}

func (a *AdaptiveLimiter) degraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now().Before(a.degradedUntil)
}

func (a *AdaptiveLimiter) degrade() {
	a.mu.Lock()
	a.degradedUntil = a.now().Add(a.cooldown)
	a.mu.Unlock()
}

func decide(backend string, result *Result) (*Result, error) {
	if result.Allowed {
		checksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}
	checksTotal.WithLabelValues(backend, "rejected").Inc()
	return result, ErrLimitExceeded
}
