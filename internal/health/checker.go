// Package health reports liveness and readiness of the bot's dependencies.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/telebot.v3"
)

const (
	StatusOK = "OK"

	defaultCheckTimeout = 3 * time.Second
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

type namedCheck struct {
	name  string
	check Checkable
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration
	started time.Time

	mu     sync.RWMutex
	checks []namedCheck
}

// NewChecker instantiates a Checker. Each check gets timeout, three seconds when zero.
func NewChecker(log *slog.Logger, timeout time.Duration) *Checker {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	return &Checker{
		log:     log,
		timeout: timeout,
		started: time.Now(),
	}
}

// AddCheck registers a checkable component by name. A repeated name replaces the check.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].check = check
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// Uptime reports how long the checker has existed.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.started)
}

// Check runs all registered health checks concurrently and returns their statuses
// along with overall readiness.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	c.mu.RUnlock()

	results := make(map[string]string, len(checks))
	healthy := true

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, nc := range checks {
		wg.Add(1)
		go func(nc namedCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			status := StatusOK
			if err := nc.check.HealthCheck(checkCtx); err != nil {
				status = err.Error()
				c.log.Error("health check failed", slog.String("component", nc.name), slog.Any("error", err))
			}

			mu.Lock()
			results[nc.name] = status
			if status != StatusOK {
				healthy = false
			}
			mu.Unlock()
		}(nc)
	}
	wg.Wait()

	return results, healthy
}

// ContextPinger is satisfied by *sql.DB and *sqlx.DB.
type ContextPinger interface {
	PingContext(ctx context.Context) error
}

// DBChecker verifies connectivity to the PostgreSQL database.
type DBChecker struct {
	db ContextPinger
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(db ContextPinger) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database to ensure it is reachable.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New("database is not configured")
	}
	return c.db.PingContext(ctx)
}

// Pinger is satisfied by the Redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return errors.New("redis is not configured")
	}
	return c.pinger.Ping(ctx)
}

// TelegramChecker verifies that the bot identified itself against the Bot API.
type TelegramChecker struct {
	bot *telebot.Bot
}

// NewTelegramChecker constructs a TelegramChecker.
func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	return &TelegramChecker{bot: bot}
}

// HealthCheck ensures the underlying bot is initialized.
func (c *TelegramChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil {
		return errors.New("telegram bot is not initialized or disconnected")
	}
	return nil
}
