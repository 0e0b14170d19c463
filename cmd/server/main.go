package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/billing/backend/internal/application/dunning"
	"github.com/billing/backend/internal/infrastructure/cache"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/billing/backend/internal/infrastructure/document"
	"github.com/billing/backend/internal/infrastructure/logger"
	"github.com/billing/backend/internal/infrastructure/notification"
	"github.com/billing/backend/internal/infrastructure/persistence"
	"github.com/billing/backend/internal/infrastructure/queue"
	"github.com/billing/backend/internal/infrastructure/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Repositories
	reminderRepo := persistence.NewGormReminderRepository(db.DB)
	partyRepo := persistence.NewGormPartyRepository(db.DB)
	jobRepo := persistence.NewGormJobRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Application services
	dispatchService := dunning.NewDispatchService(reminderRepo, uow, dunning.DispatchServiceConfig{
		BatchSize: cfg.Scheduler.BatchSize,
	}, log)

	// Queue workers
	notifier := notification.NewLogNotifier(log)
	generator := document.NewRefGenerator(log)
	registry, err := queue.NewRegistry(
		queue.NewReminderDispatchHandler(partyRepo, generator, jobRepo, log),
		queue.NewReminderEmailHandler(notifier, log),
	)
	if err != nil {
		log.Fatal("Failed to build job handler registry", zap.Error(err))
	}
	workerPool := queue.NewWorkerPool(jobRepo, registry, queue.WorkerPoolConfig{
		WorkerCount:      cfg.Queue.WorkerCount,
		BatchSize:        cfg.Queue.BatchSize,
		PollInterval:     cfg.Queue.PollInterval,
		StaleClaimAfter:  cfg.Queue.StaleClaimAfter,
		CleanupEnabled:   cfg.Queue.CleanupEnabled,
		CleanupRetention: cfg.Queue.Retention,
		CleanupInterval:  cfg.Queue.CleanupInterval,
	}, log)

	if err := workerPool.Start(context.Background()); err != nil {
		log.Fatal("Failed to start queue worker pool", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := workerPool.Stop(ctx); err != nil {
			log.Error("Failed to stop queue worker pool", zap.Error(err))
		}
	}()

	// Reminder scan trigger
	var locker cache.ScanLocker = cache.NoopScanLock{}
	if cfg.Scheduler.LockEnabled {
		redisLock, err := cache.NewRedisScanLock(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect scan lock to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Failed to close Redis scan lock", zap.Error(err))
			}
		}()
		locker = redisLock
	}

	if cfg.Scheduler.Enabled {
		trigger := scheduler.NewDunningCronTrigger(scheduler.DunningCronTriggerConfig{
			TickInterval: cfg.Scheduler.TickInterval,
			LockTTL:      cfg.Scheduler.LockTTL,
		}, dispatchService, locker, log)

		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start dunning cron trigger", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := trigger.Stop(ctx); err != nil {
				log.Error("Failed to stop dunning cron trigger", zap.Error(err))
			}
		}()
	}

	log.Info("Billing backend started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info("Shutting down", zap.String("signal", sig.String()))
}
