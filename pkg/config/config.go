package config

import (
	"fmt"
	"time"

	"github.com/Proton-105/donation-bot/pkg/redis"
)

// Config holds runtime configuration for the donation bot.
type Config struct {
	AppEnv      string            `mapstructure:"app_env"`
	Bot         BotConfig         `mapstructure:"bot" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Server      ServerConfig      `mapstructure:"server"`
	State       StateConfig       `mapstructure:"state"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	I18n        I18nConfig        `mapstructure:"i18n"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
	// AdminID is the Telegram id allowed into the admin panel; 0 disables it.
	AdminID        int64         `mapstructure:"admin_id" validate:"gte=0"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	Webhook        WebhookConfig `mapstructure:"webhook"`
	HistoryLimit   int           `mapstructure:"history_limit" validate:"gte=1,lte=100"`
}

// WebhookConfig is used when Bot.Mode is webhook.
type WebhookConfig struct {
	Listen    string `mapstructure:"listen"`
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres memory"`
	Host            string        `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsTable string        `mapstructure:"migrations_table"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// RedisConfig toggles Redis-backed components.
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// LoggerConfig configures pkg/logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ServerConfig configures the probes and metrics HTTP server.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StateConfig configures conversation state storage.
type StateConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// ProofTimeout is how long an unanswered proof prompt keeps its pending transaction.
	ProofTimeout  time.Duration `mapstructure:"proof_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	LockWait      time.Duration `mapstructure:"lock_wait"`
}

// RateLimitRule is a sliding-window limit.
type RateLimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// RateLimitConfig configures per-user and per-action limits.
type RateLimitConfig struct {
	Enabled         bool                     `mapstructure:"enabled"`
	PerUser         RateLimitRule            `mapstructure:"per_user"`
	Actions         map[string]RateLimitRule `mapstructure:"actions"`
	Whitelist       []int64                  `mapstructure:"whitelist"`
	CleanupInterval time.Duration            `mapstructure:"cleanup_interval"`
}

// JobsConfig configures the asynq worker and scheduler.
type JobsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Concurrency int    `mapstructure:"concurrency"`
	StatsCron   string `mapstructure:"stats_cron"`
	MaxRetry    int    `mapstructure:"max_retry"`
}

// I18nConfig configures message catalogs.
type I18nConfig struct {
	DefaultLang string `mapstructure:"default_lang" validate:"oneof=en ru uk"`
	// Dir overrides the embedded catalogs when set.
	Dir string `mapstructure:"dir"`
}

// IdempotencyConfig configures duplicate update suppression.
type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}
