package dunning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// ReminderServiceConfig holds reminder seeding defaults
type ReminderServiceConfig struct {
	// DefaultIntervalDays is the recurrence interval for the reminder
	// seeded at the invoice due date
	DefaultIntervalDays int
	// NotifyBeforeDays is how many days before the due date the one-off
	// heads-up reminder fires
	NotifyBeforeDays int
}

// DefaultReminderServiceConfig returns default seeding configuration
func DefaultReminderServiceConfig() ReminderServiceConfig {
	return ReminderServiceConfig{
		DefaultIntervalDays: 7,
		NotifyBeforeDays:    3,
	}
}

// ReminderService creates dunning reminders for invoices
type ReminderService struct {
	invoiceRepo  billing.InvoiceRepository
	reminderRepo billing.ReminderRepository
	config       ReminderServiceConfig
	logger       *zap.Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	invoiceRepo billing.InvoiceRepository,
	reminderRepo billing.ReminderRepository,
	config ReminderServiceConfig,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		invoiceRepo:  invoiceRepo,
		reminderRepo: reminderRepo,
		config:       config,
		logger:       logger,
	}
}

// CreateReminderRequest represents a reminder to create for an invoice.
// DueDate arrives as an RFC 3339 string from the request layer.
type CreateReminderRequest struct {
	InvoiceID    uuid.UUID
	DueDate      string
	IsRecurring  bool
	IntervalDays int
}

// CreateReminder validates and persists a reminder for an invoice.
// It rejects malformed or past due dates and recurring requests without
// a positive interval before any state change.
func (s *ReminderService) CreateReminder(ctx context.Context, req CreateReminderRequest) (*billing.Reminder, error) {
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", fmt.Sprintf("Due date must be RFC 3339, got %q", req.DueDate))
	}
	if dueDate.Before(time.Now()) {
		return nil, shared.NewDomainError("PAST_DUE_DATE", "Reminder due date cannot be in the past")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	reminder, err := billing.NewReminder(invoice.CreatedBy, invoice.ClientID, invoice.ID, dueDate, req.IsRecurring, req.IntervalDays)
	if err != nil {
		return nil, err
	}

	if err := s.reminderRepo.Save(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to save reminder: %w", err)
	}

	s.logger.Info("reminder created",
		zap.String("reminder_id", reminder.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Time("due_date", dueDate),
		zap.Bool("recurring", req.IsRecurring),
	)
	return reminder, nil
}

// SeedInvoiceReminders creates the two initial reminders for a freshly
// created invoice: a recurring one starting at the due date and a
// one-off heads-up ahead of it. Failures are logged and swallowed; the
// invoice itself is never rolled back over a missing reminder.
func (s *ReminderService) SeedInvoiceReminders(ctx context.Context, invoice *billing.Invoice) {
	recurring, err := billing.NewReminder(
		invoice.CreatedBy, invoice.ClientID, invoice.ID,
		invoice.DueDate, true, s.config.DefaultIntervalDays,
	)
	if err == nil {
		err = s.reminderRepo.Save(ctx, recurring)
	}
	if err != nil {
		s.logger.Error("failed to seed recurring reminder",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}

	notifyAt := invoice.DueDate.AddDate(0, 0, -s.config.NotifyBeforeDays)
	headsUp, err := billing.NewReminder(
		invoice.CreatedBy, invoice.ClientID, invoice.ID,
		notifyAt, false, 0,
	)
	if err == nil {
		err = s.reminderRepo.Save(ctx, headsUp)
	}
	if err != nil {
		s.logger.Error("failed to seed notify-before reminder",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}
