package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/application/dunning"
	"github.com/billing/backend/internal/domain/billing"
)

// InvoiceService creates invoices and seeds their dunning reminders
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	reminders   *dunning.ReminderService
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	reminders *dunning.ReminderService,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		reminders:   reminders,
		logger:      logger,
	}
}

// CreateInvoiceRequest represents an invoice to create
type CreateInvoiceRequest struct {
	CreatedBy   uuid.UUID
	ClientID    uuid.UUID
	Number      string
	TotalAmount decimal.Decimal
	DueDate     time.Time
}

// CreateInvoice persists a new invoice and seeds its reminders. Reminder
// seeding failures are logged inside the seeding step and never roll the
// invoice back.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	invoice, err := billing.NewInvoice(req.CreatedBy, req.ClientID, req.Number, req.TotalAmount, req.DueDate)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.reminders.SeedInvoiceReminders(ctx, invoice)

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("total_amount", invoice.TotalAmount.String()),
		zap.Time("due_date", invoice.DueDate),
	)
	return invoice, nil
}
