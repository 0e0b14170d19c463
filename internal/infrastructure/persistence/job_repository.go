package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/billing/backend/internal/domain/job"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
)

// GormJobRepository implements the durable queue repository using GORM
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction
func (r *GormJobRepository) WithTx(tx *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: tx}
}

// Save persists one or more jobs
func (r *GormJobRepository) Save(ctx context.Context, jobs ...*job.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	jobModels := make([]*models.JobModel, len(jobs))
	for i, j := range jobs {
		jobModels[i] = models.JobModelFromDomain(j)
	}
	return r.db.WithContext(ctx).Create(jobModels).Error
}

// FindRunnable retrieves pending jobs plus failed jobs whose retry time
// has passed, oldest first
func (r *GormJobRepository) FindRunnable(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	var jobModels []models.JobModel
	if err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND next_retry_at <= ?)", job.StatusPending, job.StatusFailed, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}
	jobs := make([]*job.Job, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = model.ToDomain()
	}
	return jobs, nil
}

// MarkProcessing atomically claims the given jobs and returns those
// actually claimed. Rows already claimed by a concurrent worker are
// skipped rather than waited on.
func (r *GormJobRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*job.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var jobModels []models.JobModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("id IN ? AND status IN ?", ids, []job.Status{
				job.StatusPending,
				job.StatusFailed,
			}).
			Find(&jobModels).Error; err != nil {
			return err
		}

		if len(jobModels) == 0 {
			return nil
		}

		claimedIDs := make([]uuid.UUID, len(jobModels))
		for i, m := range jobModels {
			claimedIDs[i] = m.ID
		}

		now := time.Now()
		if err := tx.Model(&models.JobModel{}).
			Where("id IN ?", claimedIDs).
			Updates(map[string]interface{}{
				"status":     job.StatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for i := range jobModels {
			jobModels[i].Status = job.StatusProcessing
			jobModels[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = model.ToDomain()
	}
	return jobs, nil
}

// Update persists the state of a processed job
func (r *GormJobRepository) Update(ctx context.Context, j *job.Job) error {
	j.UpdatedAt = time.Now()
	model := models.JobModelFromDomain(j)
	return r.db.WithContext(ctx).Save(model).Error
}

// RequeueStale resets processing jobs not touched since the given time
// back to pending so they are picked up again after a worker crash
func (r *GormJobRepository) RequeueStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.JobModel{}).
		Where("status = ? AND updated_at < ?", job.StatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":     job.StatusPending,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan removes done jobs processed before the given time
func (r *GormJobRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", job.StatusDone, before).
		Delete(&models.JobModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormJobRepository implements the queue repository
var _ job.Repository = (*GormJobRepository)(nil)
