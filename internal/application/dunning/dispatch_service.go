package dunning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/job"
	"github.com/billing/backend/internal/domain/shared"
)

// DispatchServiceConfig holds scan configuration
type DispatchServiceConfig struct {
	// BatchSize caps how many due reminders one scan processes
	BatchSize int
}

// DefaultDispatchServiceConfig returns default scan configuration
func DefaultDispatchServiceConfig() DispatchServiceConfig {
	return DispatchServiceConfig{
		BatchSize: 100,
	}
}

// DispatchService scans for due reminders and runs the dispatch unit per
// reminder: enqueue the delivery job, mark the reminder scheduled and
// insert the recurrence successor, all in one transaction. A unit that
// fails rolls back wholly, leaving the reminder pending for the next
// scan; delivery is therefore at-least-once with duplicates possible.
type DispatchService struct {
	reminderRepo billing.ReminderRepository
	uow          billing.UnitOfWork
	config       DispatchServiceConfig
	logger       *zap.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	reminderRepo billing.ReminderRepository,
	uow billing.UnitOfWork,
	config DispatchServiceConfig,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		reminderRepo: reminderRepo,
		uow:          uow,
		config:       config,
		logger:       logger,
	}
}

// ScanResult summarizes one scan pass
type ScanResult struct {
	Due        int
	Dispatched int
	Skipped    int
	Failed     int
}

// Scan reads the due set and dispatches each reminder sequentially.
// Per-reminder failures are logged and do not stop the pass.
func (s *DispatchService) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult

	due, err := s.reminderRepo.FindDue(ctx, time.Now(), s.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to read due reminders: %w", err)
	}
	result.Due = len(due)

	for _, d := range due {
		switch err := s.dispatchOne(ctx, d); {
		case err == nil:
			result.Dispatched++
		case errors.Is(err, errSkipUnit):
			result.Skipped++
		default:
			result.Failed++
			s.logger.Error("dispatch unit failed, reminder stays pending",
				zap.String("reminder_id", d.Reminder.ID.String()),
				zap.String("invoice_id", d.Reminder.InvoiceID.String()),
				zap.Error(err),
			)
		}
	}

	if result.Due > 0 {
		s.logger.Info("dunning scan finished",
			zap.Int("due", result.Due),
			zap.Int("dispatched", result.Dispatched),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// errSkipUnit aborts a dispatch unit without treating it as a failure
var errSkipUnit = errors.New("dispatch unit skipped")

// dispatchOne runs the dispatch unit for a single due reminder
func (s *DispatchService) dispatchOne(ctx context.Context, d billing.DueReminder) error {
	reminder := d.Reminder

	return s.uow.Execute(ctx, func(tx billing.TxContext) error {
		// The invoice behind the reminder may have been deleted since the
		// scan read its row; skip the whole unit in that case.
		if _, err := tx.Invoices().FindByID(ctx, reminder.InvoiceID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("skipping reminder for deleted invoice",
					zap.String("reminder_id", reminder.ID.String()),
					zap.String("invoice_id", reminder.InvoiceID.String()),
				)
				return errSkipUnit
			}
			return err
		}

		deliveryJob, err := job.NewReminderDispatchJob(job.DispatchPayload{
			ReminderID: reminder.ID,
			UserID:     reminder.UserID,
			ClientID:   reminder.ClientID,
			InvoiceID:  reminder.InvoiceID,
		})
		if err != nil {
			return err
		}
		if err := tx.Jobs().Save(ctx, deliveryJob); err != nil {
			return fmt.Errorf("failed to enqueue delivery job: %w", err)
		}

		if err := reminder.MarkScheduled(); err != nil {
			return err
		}
		// The conditional claim is the idempotency boundary: a row already
		// claimed by a concurrent dispatcher, or canceled by a settlement
		// cascade since the scan read it, matches zero rows and the whole
		// unit rolls back, enqueued job included.
		if err := tx.Reminders().ClaimScheduled(ctx, reminder); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				s.logger.Warn("reminder claimed elsewhere or canceled since scan, skipping",
					zap.String("reminder_id", reminder.ID.String()),
					zap.String("invoice_id", reminder.InvoiceID.String()),
				)
				return errSkipUnit
			}
			return fmt.Errorf("failed to claim reminder: %w", err)
		}

		if reminder.IsRecurring && reminder.IntervalDays < 1 {
			// Rows predating the creation-time interval guard; a
			// same-instant successor would fire on every scan.
			s.logger.Warn("recurring reminder without positive interval, terminating lineage",
				zap.String("reminder_id", reminder.ID.String()),
			)
		}
		if next := reminder.NextOccurrence(); next != nil {
			if err := tx.Reminders().Save(ctx, next); err != nil {
				return fmt.Errorf("failed to insert successor reminder: %w", err)
			}
			s.logger.Debug("recurrence expanded",
				zap.String("reminder_id", reminder.ID.String()),
				zap.String("successor_id", next.ID.String()),
				zap.Time("next_due", next.DueDate),
			)
		}
		return nil
	})
}
