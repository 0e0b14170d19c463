package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/job"
	"github.com/billing/backend/internal/infrastructure/document"
	"github.com/billing/backend/internal/infrastructure/notification"
)

// ReminderDispatchHandler runs the first delivery stage: it resolves the
// invoice document and the delivery parties, then enqueues the email job
// on the emails queue. It never touches invoice or reminder rows.
type ReminderDispatchHandler struct {
	parties   billing.PartyRepository
	generator document.Generator
	jobs      job.Repository
	logger    *zap.Logger
}

// NewReminderDispatchHandler creates a new ReminderDispatchHandler
func NewReminderDispatchHandler(
	parties billing.PartyRepository,
	generator document.Generator,
	jobs job.Repository,
	logger *zap.Logger,
) *ReminderDispatchHandler {
	return &ReminderDispatchHandler{
		parties:   parties,
		generator: generator,
		jobs:      jobs,
		logger:    logger,
	}
}

// Kind returns the job kind this handler processes
func (h *ReminderDispatchHandler) Kind() job.Kind {
	return job.KindReminderDispatch
}

// Handle generates the invoice document and enqueues the follow-up email
func (h *ReminderDispatchHandler) Handle(ctx context.Context, j *job.Job) error {
	payload, err := j.DecodeDispatchPayload()
	if err != nil {
		return err
	}

	ref, err := h.generator.Generate(ctx, payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("failed to generate invoice document: %w", err)
	}

	user, err := h.parties.FindUser(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to load reminder user: %w", err)
	}
	client, err := h.parties.FindClient(ctx, payload.ClientID)
	if err != nil {
		return fmt.Errorf("failed to load reminder client: %w", err)
	}

	emailJob, err := job.NewReminderEmailJob(job.EmailPayload{
		ReminderID:  payload.ReminderID,
		UserID:      payload.UserID,
		ClientID:    payload.ClientID,
		InvoiceID:   payload.InvoiceID,
		To:          user.Email,
		ClientName:  client.Name,
		DocumentRef: ref,
	})
	if err != nil {
		return err
	}
	if err := h.jobs.Save(ctx, emailJob); err != nil {
		return fmt.Errorf("failed to enqueue email job: %w", err)
	}

	h.logger.Debug("reminder dispatch handled",
		zap.String("reminder_id", payload.ReminderID.String()),
		zap.String("email_job_id", emailJob.ID.String()),
	)
	return nil
}

// ReminderEmailHandler runs the second delivery stage: it sends the
// reminder notification through the configured transport.
type ReminderEmailHandler struct {
	notifier notification.Notifier
	logger   *zap.Logger
}

// NewReminderEmailHandler creates a new ReminderEmailHandler
func NewReminderEmailHandler(notifier notification.Notifier, logger *zap.Logger) *ReminderEmailHandler {
	return &ReminderEmailHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// Kind returns the job kind this handler processes
func (h *ReminderEmailHandler) Kind() job.Kind {
	return job.KindReminderEmail
}

// Handle delivers the reminder notification
func (h *ReminderEmailHandler) Handle(ctx context.Context, j *job.Job) error {
	payload, err := j.DecodeEmailPayload()
	if err != nil {
		return err
	}

	msg := notification.Message{
		Template: "invoice_reminder",
		To:       payload.To,
		Locals: map[string]string{
			"client_name":  payload.ClientName,
			"invoice_id":   payload.InvoiceID.String(),
			"document_ref": payload.DocumentRef,
		},
	}
	if err := h.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reminder notification: %w", err)
	}

	h.logger.Debug("reminder email handled",
		zap.String("reminder_id", payload.ReminderID.String()),
		zap.String("to", payload.To),
	)
	return nil
}

var (
	_ Handler = (*ReminderDispatchHandler)(nil)
	_ Handler = (*ReminderEmailHandler)(nil)
)
