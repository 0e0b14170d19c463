package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/billing/backend/internal/application/dunning"
	"github.com/billing/backend/internal/infrastructure/cache"
)

// ReminderScanner runs one pass over the due reminder set
type ReminderScanner interface {
	Scan(ctx context.Context) (dunning.ScanResult, error)
}

// DunningCronTriggerConfig holds configuration for the reminder scan trigger
type DunningCronTriggerConfig struct {
	// TickInterval is how often the due set is scanned
	TickInterval time.Duration

	// LockTTL bounds how long a crashed instance holds the scan lock
	LockTTL time.Duration
}

// DefaultDunningCronTriggerConfig returns default configuration
func DefaultDunningCronTriggerConfig() DunningCronTriggerConfig {
	return DunningCronTriggerConfig{
		TickInterval: 20 * time.Second,
		LockTTL:      30 * time.Second,
	}
}

// DunningCronTrigger drives the reminder scan on a fixed interval.
// A tick that arrives while the previous scan is still running is
// skipped, and the cross-instance lock keeps concurrent deployments
// from scanning the same due set at once. Scan errors are logged; the
// loop never stops over them.
type DunningCronTrigger struct {
	config  DunningCronTriggerConfig
	scanner ReminderScanner
	locker  cache.ScanLocker
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	inFlight atomic.Bool
}

// NewDunningCronTrigger creates a new reminder scan trigger
func NewDunningCronTrigger(
	config DunningCronTriggerConfig,
	scanner ReminderScanner,
	locker cache.ScanLocker,
	logger *zap.Logger,
) *DunningCronTrigger {
	return &DunningCronTrigger{
		config:  config,
		scanner: scanner,
		locker:  locker,
		logger:  logger,
	}
}

// Start starts the trigger loop
func (t *DunningCronTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("dunning cron trigger started",
		zap.Duration("tick_interval", t.config.TickInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (t *DunningCronTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("dunning cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop ticks until the context is canceled
func (t *DunningCronTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()

	// Run immediately on start
	t.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick runs one guarded scan pass
func (t *DunningCronTrigger) tick(ctx context.Context) {
	if !t.inFlight.CompareAndSwap(false, true) {
		t.logger.Debug("previous scan still running, skipping tick")
		return
	}
	defer t.inFlight.Store(false)

	acquired, err := t.locker.Acquire(ctx, t.config.LockTTL)
	if err != nil {
		t.logger.Error("failed to acquire scan lock", zap.Error(err))
		return
	}
	if !acquired {
		t.logger.Debug("scan lock held by another instance, skipping tick")
		return
	}
	defer func() {
		if err := t.locker.Release(ctx); err != nil {
			t.logger.Warn("failed to release scan lock", zap.Error(err))
		}
	}()

	if _, err := t.scanner.Scan(ctx); err != nil {
		t.logger.Error("reminder scan failed", zap.Error(err))
	}
}
