package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/donation-bot/internal/lifecycle"
	"github.com/Proton-105/donation-bot/pkg/config"
	"github.com/Proton-105/donation-bot/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("donation bot stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			slog.Warn("sentry init failed, continuing without it", slog.Any("error", err))
			cfg.Sentry.Enabled = false
		}
	}

	appLog := logger.New(logger.Options{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Sentry:     cfg.Sentry.Enabled,
	})
	log := appLog.Logger
	slog.SetDefault(log)

	log.Info("starting donation bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("db_driver", cfg.Database.Driver),
		slog.Bool("redis", cfg.Redis.Enabled),
	)

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register(lifecycle.StageTelemetry, "logger", func(context.Context) error {
		return appLog.Close()
	})
	if cfg.Sentry.Enabled {
		shutdown.Register(lifecycle.StageTelemetry, "sentry", func(context.Context) error {
			if !sentry.Flush(2 * time.Second) {
				return errors.New("sentry flush timed out")
			}
			return nil
		})
	}

	// Background loops stop in the workers stage, after ingress is closed.
	loopCtx, cancelLoops := context.WithCancel(context.Background())
	var loops sync.WaitGroup
	shutdown.Register(lifecycle.StageWorkers, "background loops", func(ctx context.Context) error {
		cancelLoops()
		return waitGroup(ctx, &loops)
	})

	a, err := build(ctx, cfg, log, shutdown)
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}

	a.startLoops(loopCtx, &loops)

	config.Watch(v, func(next *config.Config) {
		appLog.SetLevel(next.Logger.Level)
		log.Info("config reloaded", slog.String("log_level", next.Logger.Level))
	}, func(err error) {
		log.Warn("config reload rejected", slog.Any("error", err))
	})

	go a.bot.Start()
	log.Info("donation bot started", slog.String("username", a.bot.Telebot().Me.Username))

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
