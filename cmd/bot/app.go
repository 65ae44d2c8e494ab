package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"

	"github.com/Proton-105/donation-bot/internal/admin"
	"github.com/Proton-105/donation-bot/internal/bot"
	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/internal/cards"
	"github.com/Proton-105/donation-bot/internal/currency"
	"github.com/Proton-105/donation-bot/internal/database"
	"github.com/Proton-105/donation-bot/internal/donation"
	apperrors "github.com/Proton-105/donation-bot/internal/errors"
	"github.com/Proton-105/donation-bot/internal/health"
	"github.com/Proton-105/donation-bot/internal/i18n"
	"github.com/Proton-105/donation-bot/internal/idempotency"
	"github.com/Proton-105/donation-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/donation-bot/internal/jobs/handlers"
	"github.com/Proton-105/donation-bot/internal/lifecycle"
	"github.com/Proton-105/donation-bot/internal/lock"
	"github.com/Proton-105/donation-bot/internal/notify"
	"github.com/Proton-105/donation-bot/internal/ratelimit"
	"github.com/Proton-105/donation-bot/internal/repository"
	"github.com/Proton-105/donation-bot/internal/settings"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/internal/store/memory"
	"github.com/Proton-105/donation-bot/internal/transaction"
	"github.com/Proton-105/donation-bot/internal/user"
	"github.com/Proton-105/donation-bot/internal/usercache"
	"github.com/Proton-105/donation-bot/migrations"
	"github.com/Proton-105/donation-bot/pkg/config"
	"github.com/Proton-105/donation-bot/pkg/graceful"
	"github.com/Proton-105/donation-bot/pkg/metrics"
	pkgredis "github.com/Proton-105/donation-bot/pkg/redis"
)

const stateMetricsInterval = 30 * time.Second

// app holds the long-running parts started after wiring.
type app struct {
	bot    *bot.Bot
	server *graceful.Server
	loops  []func(context.Context)
}

func (a *app) startLoops(ctx context.Context, wg *sync.WaitGroup) {
	for _, loop := range a.loops {
		fn := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
}

// build wires every component and registers its shutdown hook. On error the hooks
// registered so far are still valid and the caller runs them.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger, shutdown *lifecycle.Shutdown) (*app, error) {
	a := &app{}
	checker := health.NewChecker(log, 0)

	st, db, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if db != nil {
		checker.AddCheck("postgres", health.NewDBChecker(db))
		shutdown.Register(lifecycle.StageStorage, "postgres", func(context.Context) error {
			return db.Close()
		})
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enabled {
		rc, err = pkgredis.New(ctx, cfg.Redis.Config)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		checker.AddCheck("redis", health.NewRedisChecker(rc))
		shutdown.Register(lifecycle.StageStorage, "redis", func(context.Context) error {
			return rc.Close()
		})
	}

	var catalog *i18n.Manager
	if cfg.I18n.Dir != "" {
		catalog, err = i18n.LoadFromDir(cfg.I18n.Dir, cfg.I18n.DefaultLang)
	} else {
		catalog, err = i18n.Load(cfg.I18n.DefaultLang)
	}
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	for _, lang := range catalog.Languages() {
		if missing := catalog.MissingKeys(lang); len(missing) > 0 {
			log.Warn("translation incomplete, falling back to default language",
				slog.String("lang", lang),
				slog.Int("missing", len(missing)),
				slog.String("first", missing[0]),
			)
		}
	}

	var (
		locker   lock.Locker
		storage  state.Storage
		cache    *usercache.Cache
		idemMem  *idempotency.MemoryStore
		idemKeys idempotency.Store
	)
	if rc != nil {
		locker = lock.NewRedis(rc.Client, log, cfg.State.LockTTL, cfg.State.LockWait)
		storage = state.NewRedisStorage(rc.Client, log, cfg.State.TTL)
		cache, err = usercache.NewCache(rc.Client, cfg.State.TTL)
		idemKeys = idempotency.NewRedisStore(rc.Client, log)
	} else {
		log.Warn("redis disabled, keeping sessions and locks in process memory")
		locker = lock.NewLocal(cfg.State.LockWait)
		storage = state.NewMemoryStorage(cfg.State.TTL)
		cache, err = usercache.NewCache(nil, cfg.State.TTL)
		idemMem = idempotency.NewMemoryStore()
		idemKeys = idemMem
	}
	if err != nil {
		return nil, err
	}
	shutdown.Register(lifecycle.StageStorage, "language cache", func(context.Context) error {
		cache.Close()
		return nil
	})

	state.RegisterTransitionRecorder(metrics.RecordStateTransition)
	fsm := state.NewStateMachine(storage, log, locker)
	sessions := state.NewSessions(fsm, log)

	settingsSvc := settings.NewService(st, log)
	rotator := cards.NewRotator(st, settingsSvc, locker, log)
	manager := transaction.NewManager(st, rotator, log)
	resolver := currency.NewResolver(settingsSvc, st)
	users := user.NewService(st, cache, catalog.Languages(), log)
	donations := donation.NewService(sessions, resolver, manager, users, cfg.Bot.AdminID, log)
	adminSvc := admin.NewService(cfg.Bot.AdminID, st, settingsSvc, sessions, log)

	tb, err := bot.NewTelebot(cfg.Bot, log)
	if err != nil {
		return nil, err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))

	direct := notify.NewTelegramNotifier(tb, apperrors.DefaultRetryPolicy, nil, log)
	var notifier notify.Notifier = direct
	if cfg.Jobs.Enabled && rc != nil {
		notifier = startJobs(cfg, log, shutdown, direct, manager)
	} else if cfg.Jobs.Enabled {
		log.Warn("jobs enabled without redis, sending notifications inline")
	}

	var limiter ratelimit.Limiter
	rules := ratelimit.NewRules(cfg.RateLimit)
	if cfg.RateLimit.Enabled {
		memLimiter := ratelimit.NewMemoryLimiter(log)
		limiter = memLimiter
		var cleaner *ratelimit.Cleaner
		if rc != nil {
			limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rc.Client, log), memLimiter, log)
			cleaner = ratelimit.NewCleaner(rc.Client, memLimiter, log, cfg.RateLimit.CleanupInterval, rules.LongestWindow())
		} else {
			cleaner = ratelimit.NewCleaner(nil, memLimiter, log, cfg.RateLimit.CleanupInterval, rules.LongestWindow())
		}
		a.loops = append(a.loops, cleaner.Run)
	}

	var idemClean *idempotency.Cleaner
	if rc != nil {
		idemClean = idempotency.NewCleaner(rc.Client, nil, log, cfg.State.SweepInterval, cfg.Idempotency.TTL)
	} else {
		idemClean = idempotency.NewCleaner(nil, idemMem, log, cfg.State.SweepInterval, cfg.Idempotency.TTL)
	}

	a.bot = bot.New(tb, *cfg, log, bot.Deps{
		Deps: handlers.Deps{
			Users:        users,
			Donations:    donations,
			Admin:        adminSvc,
			Transactions: manager,
			Sessions:     sessions,
			Notifier:     notifier,
			Catalog:      catalog,
			HistoryLimit: cfg.Bot.HistoryLimit,
			Log:          log,
		},
		FSM:            fsm,
		Locker:         locker,
		Idempotency:    idempotency.NewGuard(idemKeys, log),
		IdempotencyTTL: cfg.Idempotency.TTL,
		Limiter:        limiter,
		Rules:          rules,
	})
	shutdown.Register(lifecycle.StageIngress, "telegram", func(context.Context) error {
		a.bot.Stop()
		return nil
	})

	a.server = graceful.NewServer(log, cfg.Server.Port, health.Routes(checker, log), cfg.Server.ShutdownTimeout)
	shutdown.Register(lifecycle.StageIngress, "http", a.server.Shutdown)

	a.loops = append(a.loops,
		func(context.Context) {
			// The server is stopped by its ingress hook, not by the loop context.
			if err := a.server.ListenAndServe(context.Background()); err != nil {
				log.Error("health server failed", slog.Any("error", err))
			}
		},
		state.NewCleaner(storage, log, cfg.State.ProofTimeout, cfg.State.SweepInterval, donations.ExpireSession).Run,
		metrics.NewStateCollector(fsm, stateMetricsInterval, log).Run,
		idemClean.Run,
	)

	return a, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (store.Store, *sqlx.DB, error) {
	if cfg.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil, nil
	}

	db, err := repository.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	migrator, err := database.NewMigrator(db.DB, cfg.MigrationsTable, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	applied, err := migrator.Apply(ctx, migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("database migrations applied", slog.Int("applied", applied))

	return repository.NewPostgres(db, log), db, nil
}

// startJobs wires the asynq queue: notifications go through it and the worker
// delivers them with the direct notifier.
func startJobs(cfg *config.Config, log *slog.Logger, shutdown *lifecycle.Shutdown, direct notify.Notifier, stats jobhandlers.StatsSource) notify.Notifier {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}

	queue := jobs.NewClient(redisOpt, log)
	worker := jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
	worker.Handle(jobs.TaskTypeNotify, notify.NewTaskHandler(direct, log))
	worker.Handle(jobs.TaskTypeStatsSnapshot, jobhandlers.NewStatsSnapshotHandler(stats, log))

	if err := worker.Start(); err != nil {
		log.Error("jobs worker failed to start, sending notifications inline", slog.Any("error", err))
		_ = queue.Close()
		return direct
	}

	scheduler := jobs.NewScheduler(redisOpt, log)
	if err := scheduler.ScheduleStatsSnapshot(cfg.Jobs.StatsCron); err != nil {
		log.Error("stats snapshot not scheduled", slog.Any("error", err))
	} else if err := scheduler.Start(); err != nil {
		log.Error("scheduler failed to start", slog.Any("error", err))
	} else {
		shutdown.Register(lifecycle.StageWorkers, "scheduler", func(context.Context) error {
			scheduler.Stop()
			return nil
		})
	}

	shutdown.Register(lifecycle.StageWorkers, "jobs worker", func(context.Context) error {
		worker.Stop()
		return nil
	})
	shutdown.Register(lifecycle.StageWorkers, "jobs queue", func(context.Context) error {
		return queue.Close()
	})

	return notify.NewQueuedNotifier(queue, direct, cfg.Jobs.MaxRetry, log)
}
