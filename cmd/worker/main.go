// Package main is the entry point for the trainee events hub worker.
//
// The worker owns the background side of the hub:
// - Nightly reconciliation of attendance export feeds
// - Sweeping stale booked events whose ledgers never changed
// - Warming the cached point totals per candidate
//
// The write path (creating events, registering attendance) goes through
// the same command handlers the reconciliation job uses, so a row added
// by hand and a row added by a feed follow identical rules.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trainee-hub/trainee-events-hub/config"
	"github.com/trainee-hub/trainee-events-hub/internal/application/command"
	"github.com/trainee-hub/trainee-events-hub/internal/application/query"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/event"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
	"github.com/trainee-hub/trainee-events-hub/internal/infrastructure/external/feed"
	"github.com/trainee-hub/trainee-events-hub/internal/infrastructure/messaging"
	"github.com/trainee-hub/trainee-events-hub/internal/infrastructure/persistence/postgres"
	"github.com/trainee-hub/trainee-events-hub/internal/infrastructure/persistence/redis"
	"github.com/trainee-hub/trainee-events-hub/internal/infrastructure/scheduler"
	"github.com/trainee-hub/trainee-events-hub/internal/infrastructure/scheduler/jobs"
	"github.com/trainee-hub/trainee-events-hub/pkg/logger"
	"github.com/trainee-hub/trainee-events-hub/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.Setup(logger.Config{
		Level:     cfg.Observability.LogLevel,
		Format:    logger.Format(cfg.Observability.LogFormat),
		AddSource: cfg.App.Debug,
	})
	log.Info("starting trainee events hub worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	var dbConn *postgres.Connection
	err = retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
		var connErr error
		dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var pointsCache event.PointsCache
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// The hub works without Redis; totals fall back to the database.
			log.Warn("failed to connect to Redis, point cache disabled", "error", err)
		} else {
			defer func() { _ = redisCache.Close() }()
			pointsCache = redis.NewPointsCache(redisCache)
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS AND DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	var eventBus shared.EventBus
	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		defer func() { _ = redisBus.Close() }()
		eventBus = redisBus
	} else {
		memBus := messaging.NewInMemoryEventBus(busConfig)
		defer func() { _ = memBus.Close() }()
		eventBus = memBus
	}

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		EventBus:            eventBus,
		DeadLetterQueueSize: 100,
		Logger:              log,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	eventRepo := postgres.NewEventRepository(dbConn)
	catalogRepo := postgres.NewCatalogRepository(dbConn)
	runLogRepo := postgres.NewRunLogRepository(dbConn)

	ledger := command.NewAttendanceLedger(eventRepo, catalogRepo, pointsCache, eventBus)
	reconcileHandler := command.NewReconcileHandler(
		newFeedFetcher(cfg, log),
		catalogRepo,
		catalogRepo,
		eventRepo,
		ledger,
		eventBus,
		log,
	)
	totalPoints := query.NewTotalPointsHandler(eventRepo, pointsCache, query.DefaultPointsCacheTTL)

	// Cached totals are invalidated on write; re-derive them eagerly so the
	// next read does not pay for the recompute.
	if pointsCache != nil {
		err := dispatcher.Register(shared.EventAttendanceAdded, "points-cache-warm",
			warmPointsOnAttendance(totalPoints, log))
		if err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	if cfg.Scheduler.Enabled {
		if err := registerJobs(sched, cfg, log, reconcileHandler, runLogRepo, eventRepo, eventBus, pointsCache); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	} else {
		log.Warn("scheduler disabled, worker will only serve manual triggers")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("trainee events hub worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())
	log.Info("starting graceful shutdown", "timeout", cfg.App.ShutdownTimeout.String())

	return nil
}

// newFeedFetcher picks the export transport. An export service URL wins;
// without one the worker reads CSV sign-in sheets from a shared directory.
func newFeedFetcher(cfg *config.Config, log *slog.Logger) command.FeedFetcher {
	if cfg.Feed.BaseURL != "" {
		clientCfg := feed.DefaultClientConfig(cfg.Feed.BaseURL)
		clientCfg.APIKey = cfg.Feed.APIKey
		clientCfg.Timeout = cfg.Feed.RequestTimeout
		clientCfg.Debug = cfg.App.Debug
		clientCfg.Logger = log
		clientCfg.RateLimiterConfig.RequestsPerSecond = cfg.Feed.RateLimit
		clientCfg.RateLimiterConfig.BurstSize = cfg.Feed.RateLimitBurst
		clientCfg.RateLimiterConfig.MinInterval = cfg.Feed.MinInterval
		clientCfg.RetryConfig.MaxRetries = cfg.Feed.MaxRetries
		clientCfg.RetryConfig.InitialBackoff = cfg.Feed.RetryBaseDelay
		clientCfg.RetryConfig.MaxBackoff = cfg.Feed.RetryMaxDelay
		clientCfg.CircuitBreakerConfig.FailureThreshold = cfg.Feed.CircuitBreakerThreshold
		clientCfg.CircuitBreakerConfig.Timeout = cfg.Feed.CircuitBreakerTimeout
		clientCfg.CircuitBreakerConfig.HalfOpenMaxRetries = cfg.Feed.CircuitBreakerHalfOpenMax
		return feed.NewClient(clientCfg)
	}
	if cfg.Feed.CSVDir == "" {
		log.Warn("no feed transport configured, reconciliation will fail until one is set")
	}
	return feed.NewCSVFetcher(cfg.Feed.CSVDir)
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	log *slog.Logger,
	reconciler jobs.Reconciler,
	runLog jobs.RunLog,
	eventRepo *postgres.EventRepository,
	publisher shared.EventPublisher,
	pointsCache event.PointsCache,
) error {
	reconcileSchedule, err := scheduler.NewCronSchedule(cfg.Scheduler.ReconcileCron)
	if err != nil {
		return fmt.Errorf("invalid reconcile cron %q: %w", cfg.Scheduler.ReconcileCron, err)
	}

	reconcileJob := jobs.NewReconcileFeedsJob(reconciler, runLog, log, jobs.ReconcileFeedsConfig{
		Sources:         cfg.Feed.Sources,
		OperatorID:      shared.PersonID(cfg.Scheduler.OperatorID),
		OperatorRole:    event.RoleInstituteAdmin,
		Timeout:         cfg.Scheduler.JobTimeout,
		ContinueOnError: true,
	})
	if err := sched.Register(reconcileJob, reconcileSchedule); err != nil {
		return err
	}

	sweepJob := jobs.NewSweepStaleEventsJob(eventRepo, publisher, log, jobs.SweepStaleEventsConfig{
		GracePeriod: cfg.Scheduler.SweepGracePeriod,
		Timeout:     cfg.Scheduler.JobTimeout,
	})
	if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SweepInterval)); err != nil {
		return err
	}

	if pointsCache != nil {
		refreshJob := jobs.NewRefreshPointTotalsJob(eventRepo, pointsCache, log, jobs.RefreshPointTotalsConfig{
			Concurrency: cfg.Scheduler.RefreshConcurrency,
			TTL:         cfg.Scheduler.RefreshInterval * 2,
			Timeout:     cfg.Scheduler.JobTimeout,
		})
		if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshInterval)); err != nil {
			return err
		}
	}

	return nil
}

// warmTimeout bounds one background total recompute.
const warmTimeout = 10 * time.Second

// warmPointsOnAttendance recomputes a candidate's cached total after a
// ledger change.
func warmPointsOnAttendance(totals *query.TotalPointsHandler, log *slog.Logger) shared.EventHandler {
	return func(ev shared.Event) error {
		candidateID, _ := ev.Payload()["candidate_id"].(string)
		if candidateID == "" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()

		_, err := totals.Handle(ctx, query.TotalPointsQuery{
			CandidateID: shared.CandidateID(candidateID),
		})
		if err != nil {
			log.Warn("failed to warm point total", "candidate_id", candidateID, "error", err)
		}
		return nil
	}
}
