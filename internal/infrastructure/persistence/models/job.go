package models

import (
	"time"

	"github.com/billing/backend/internal/domain/job"
)

// JobModel is the persistence model for a durable queue job
type JobModel struct {
	BaseModel
	Queue       job.Queue  `gorm:"type:varchar(30);not null;index"`
	Kind        job.Kind   `gorm:"type:varchar(50);not null;index"`
	Payload     []byte     `gorm:"type:jsonb;not null"`
	Status      job.Status `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RetryCount  int        `gorm:"not null;default:0"`
	MaxAttempts int        `gorm:"not null;default:3"`
	LastError   string     `gorm:"type:text"`
	NextRetryAt *time.Time `gorm:"index"`
	ProcessedAt *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (JobModel) TableName() string {
	return "jobs"
}

// ToDomain converts the persistence model to a domain Job
func (m *JobModel) ToDomain() *job.Job {
	return &job.Job{
		BaseEntity:  m.BaseModel.ToDomain(),
		Queue:       m.Queue,
		Kind:        m.Kind,
		Payload:     m.Payload,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		MaxAttempts: m.MaxAttempts,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
	}
}

// FromDomain populates the persistence model from a domain Job
func (m *JobModel) FromDomain(j *job.Job) {
	m.FromDomainBaseEntity(j.BaseEntity)
	m.Queue = j.Queue
	m.Kind = j.Kind
	m.Payload = j.Payload
	m.Status = j.Status
	m.RetryCount = j.RetryCount
	m.MaxAttempts = j.MaxAttempts
	m.LastError = j.LastError
	m.NextRetryAt = j.NextRetryAt
	m.ProcessedAt = j.ProcessedAt
}

// JobModelFromDomain creates a new persistence model from a domain Job
func JobModelFromDomain(j *job.Job) *JobModel {
	m := &JobModel{}
	m.FromDomain(j)
	return m
}
