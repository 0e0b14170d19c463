package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/job"
)

// WorkerPoolConfig holds configuration for the queue worker pool
type WorkerPoolConfig struct {
	WorkerCount      int
	BatchSize        int
	PollInterval     time.Duration
	StaleClaimAfter  time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultWorkerPoolConfig returns default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:      4,
		BatchSize:        50,
		PollInterval:     5 * time.Second,
		StaleClaimAfter:  5 * time.Minute,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

// WorkerPool polls the durable queue and hands claimed jobs to a fixed
// set of workers. Claiming goes through MarkProcessing, so multiple
// instances can poll the same table without double delivery.
type WorkerPool struct {
	repo     job.Repository
	registry *Registry
	config   WorkerPoolConfig
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(repo job.Repository, registry *Registry, config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.StaleClaimAfter <= 0 {
		config.StaleClaimAfter = 5 * time.Minute
	}
	return &WorkerPool{
		repo:     repo,
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// Start starts the poll loop, the workers and the cleanup loop
func (p *WorkerPool) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	jobs := make(chan *job.Job, p.config.BatchSize)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, jobs)
	}

	p.wg.Add(1)
	go p.pollLoop(ctx, jobs)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("queue worker pool started",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop gracefully stops the pool, waiting for in-flight jobs
func (p *WorkerPool) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("queue worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pollLoop periodically claims runnable jobs and feeds the workers
func (p *WorkerPool) pollLoop(ctx context.Context, jobs chan<- *job.Job) {
	defer p.wg.Done()
	defer close(jobs)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, claimed := range p.claimBatch(ctx) {
				select {
				case jobs <- claimed:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// claimBatch reads runnable jobs and atomically claims them
func (p *WorkerPool) claimBatch(ctx context.Context) []*job.Job {
	runnable, err := p.repo.FindRunnable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find runnable jobs", zap.Error(err))
		return nil
	}
	if len(runnable) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(runnable))
	for i, j := range runnable {
		ids[i] = j.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to claim jobs", zap.Error(err))
		return nil
	}
	return claimed
}

// workerLoop processes jobs until the channel closes
func (p *WorkerPool) workerLoop(ctx context.Context, jobs <-chan *job.Job) {
	defer p.wg.Done()

	for j := range jobs {
		p.processJob(ctx, j)
	}
}

// processJob runs one job through its handler and records the outcome
func (p *WorkerPool) processJob(ctx context.Context, j *job.Job) {
	handler, err := p.registry.Resolve(j.Kind)
	if err != nil {
		p.recordFailure(ctx, j, err)
		return
	}

	if err := handler.Handle(ctx, j); err != nil {
		p.recordFailure(ctx, j, err)
		return
	}

	j.MarkDone()
	if err := p.repo.Update(ctx, j); err != nil {
		p.logger.Error("failed to record job completion",
			zap.String("job_id", j.ID.String()),
			zap.Error(err),
		)
	}
}

// recordFailure marks a failed attempt and persists it. Dead jobs are
// reported in the log; nothing re-queues them.
func (p *WorkerPool) recordFailure(ctx context.Context, j *job.Job, cause error) {
	p.logger.Error("job attempt failed",
		zap.String("job_id", j.ID.String()),
		zap.String("queue", string(j.Queue)),
		zap.String("kind", string(j.Kind)),
		zap.Int("retry_count", j.RetryCount),
		zap.Error(cause),
	)

	j.MarkFailed(cause.Error())
	if j.IsDead() {
		p.logger.Warn("job moved to dead letter state",
			zap.String("job_id", j.ID.String()),
			zap.String("queue", string(j.Queue)),
			zap.String("kind", string(j.Kind)),
			zap.Int("retry_count", j.RetryCount),
			zap.String("last_error", j.LastError),
		)
	}

	if err := p.repo.Update(ctx, j); err != nil {
		p.logger.Error("failed to record job failure",
			zap.String("job_id", j.ID.String()),
			zap.Error(err),
		)
	}
}

// cleanupLoop periodically re-queues stale processing claims and removes
// old done jobs. A claim goes stale when its worker died between
// MarkProcessing and the final Update.
func (p *WorkerPool) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staleBefore := time.Now().Add(-p.config.StaleClaimAfter)
			requeued, err := p.repo.RequeueStale(ctx, staleBefore)
			if err != nil {
				p.logger.Error("failed to requeue stale processing claims", zap.Error(err))
			} else if requeued > 0 {
				p.logger.Warn("requeued stale processing claims", zap.Int64("requeued", requeued))
			}

			cutoff := time.Now().Add(-p.config.CleanupRetention)
			deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				p.logger.Error("failed to clean up done jobs", zap.Error(err))
				continue
			}
			if deleted > 0 {
				p.logger.Info("cleaned up done jobs", zap.Int64("deleted", deleted))
			}
		}
	}
}
