package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billing/backend/internal/domain/shared"
)

// Queue names the two logical delivery queues
type Queue string

const (
	QueueEmails   Queue = "emails"   // Generic notification delivery
	QueueInvoices Queue = "invoices" // Document generation, feeds the emails queue
)

// Kind identifies a job type. The set is closed: handlers are resolved
// through a lookup table keyed by Kind, never by free-form strings.
type Kind string

const (
	// KindReminderDispatch generates the invoice document for a fired
	// reminder and enqueues the follow-up email job.
	KindReminderDispatch Kind = "REMINDER_DISPATCH"
	// KindReminderEmail delivers the reminder notification.
	KindReminderEmail Kind = "REMINDER_EMAIL"
)

// IsValid checks if the kind belongs to the closed set
func (k Kind) IsValid() bool {
	return k == KindReminderDispatch || k == KindReminderEmail
}

// QueueFor returns the logical queue a kind is delivered on
func (k Kind) QueueFor() Queue {
	if k == KindReminderDispatch {
		return QueueInvoices
	}
	return QueueEmails
}

// Status represents the delivery status of a job
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusDone       Status = "DONE"
	StatusFailed     Status = "FAILED"
	StatusDead       Status = "DEAD"
)

// Delivery policy: at-least-once, three attempts, exponential backoff
// doubling from one second.
const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
)

// DispatchPayload is the payload of a KindReminderDispatch job
type DispatchPayload struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	UserID     uuid.UUID `json:"user_id"`
	ClientID   uuid.UUID `json:"client_id"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
}

// EmailPayload is the payload of a KindReminderEmail job
type EmailPayload struct {
	ReminderID  uuid.UUID `json:"reminder_id"`
	UserID      uuid.UUID `json:"user_id"`
	ClientID    uuid.UUID `json:"client_id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	To          string    `json:"to"`
	ClientName  string    `json:"client_name"`
	DocumentRef string    `json:"document_ref,omitempty"`
}

// Job is a durable unit of asynchronous work. Handlers are side-effect
// only and never mutate invoice or reminder rows, so a duplicate
// delivery cannot corrupt settlement state.
type Job struct {
	shared.BaseEntity
	Queue       Queue
	Kind        Kind
	Payload     []byte
	Status      Status
	RetryCount  int
	MaxAttempts int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
}

// newJob creates a pending job for the given kind and marshaled payload
func newJob(kind Kind, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return &Job{
		BaseEntity:  shared.NewBaseEntity(),
		Queue:       kind.QueueFor(),
		Kind:        kind,
		Payload:     raw,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
	}, nil
}

// NewReminderDispatchJob creates a document-generation job for a fired reminder
func NewReminderDispatchJob(p DispatchPayload) (*Job, error) {
	return newJob(KindReminderDispatch, p)
}

// NewReminderEmailJob creates a notification delivery job
func NewReminderEmailJob(p EmailPayload) (*Job, error) {
	return newJob(KindReminderEmail, p)
}

// DecodeDispatchPayload unmarshals the payload of a dispatch job
func (j *Job) DecodeDispatchPayload() (DispatchPayload, error) {
	var p DispatchPayload
	if j.Kind != KindReminderDispatch {
		return p, shared.NewDomainError("WRONG_KIND", fmt.Sprintf("Job is %s, not %s", j.Kind, KindReminderDispatch))
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode dispatch payload: %w", err)
	}
	return p, nil
}

// DecodeEmailPayload unmarshals the payload of an email job
func (j *Job) DecodeEmailPayload() (EmailPayload, error) {
	var p EmailPayload
	if j.Kind != KindReminderEmail {
		return p, shared.NewDomainError("WRONG_KIND", fmt.Sprintf("Job is %s, not %s", j.Kind, KindReminderEmail))
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode email payload: %w", err)
	}
	return p, nil
}

// CanRetry returns true if the job has attempts left
func (j *Job) CanRetry() bool {
	return j.Status == StatusFailed && j.RetryCount < j.MaxAttempts
}

// MarkProcessing marks the job as claimed by a worker
func (j *Job) MarkProcessing() error {
	if j.Status != StatusPending && j.Status != StatusFailed {
		return shared.NewDomainError("INVALID_STATE", "Can only claim pending or failed jobs")
	}
	j.Status = StatusProcessing
	j.UpdatedAt = time.Now()
	return nil
}

// MarkDone marks the job as successfully processed
func (j *Job) MarkDone() {
	now := time.Now()
	j.Status = StatusDone
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkFailed records a failed attempt and schedules the next retry with
// exponential backoff (1s, 2s, 4s, ...). The job dies once all attempts
// are exhausted; dead jobs are reported in the log, never re-queued.
func (j *Job) MarkFailed(errMsg string) {
	j.RetryCount++
	j.LastError = errMsg
	j.UpdatedAt = time.Now()

	if j.RetryCount >= j.MaxAttempts {
		j.Status = StatusDead
		j.NextRetryAt = nil
		return
	}

	j.Status = StatusFailed
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(j.RetryCount-1))
	nextRetry := time.Now().Add(backoff)
	j.NextRetryAt = &nextRetry
}

// IsDead returns true if the job has exhausted its attempts
func (j *Job) IsDead() bool {
	return j.Status == StatusDead
}

// Repository is the persistence boundary for the durable queue
type Repository interface {
	// Save persists one or more jobs; called inside the dispatch unit's
	// transaction so the enqueue is atomic with the reminder mutation
	Save(ctx context.Context, jobs ...*Job) error
	// FindRunnable retrieves pending jobs plus failed jobs whose retry
	// time has passed, oldest first
	FindRunnable(ctx context.Context, now time.Time, limit int) ([]*Job, error)
	// MarkProcessing atomically claims the given jobs and returns those
	// actually claimed
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*Job, error)
	// Update persists the state of a processed job
	Update(ctx context.Context, j *Job) error
	// RequeueStale resets processing jobs not touched since the given
	// time back to pending; a worker that died mid-claim leaves its jobs
	// stuck in PROCESSING otherwise
	RequeueStale(ctx context.Context, olderThan time.Time) (int64, error)
	// DeleteOlderThan removes done jobs processed before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
