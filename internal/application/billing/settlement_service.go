package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// SettlementService applies payments to invoices, reverses deleted
// payments and cascades reminder cancellation. It is the only writer of
// invoice balances and settlement status.
type SettlementService struct {
	uow    billing.UnitOfWork
	logger *zap.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(uow billing.UnitOfWork, logger *zap.Logger) *SettlementService {
	return &SettlementService{
		uow:    uow,
		logger: logger,
	}
}

// ApplyPaymentRequest represents a payment to record against an invoice
type ApplyPaymentRequest struct {
	UserID uuid.UUID
	Amount decimal.Decimal
	Method string
	PaidAt time.Time
}

// ApplyPayment records a payment and updates the invoice balance and
// status as one atomic unit. If the invoice was already fully paid
// before this payment (a payment against a settled invoice), every
// reminder of the invoice is canceled.
func (s *SettlementService) ApplyPayment(ctx context.Context, invoiceID uuid.UUID, req ApplyPaymentRequest) (*billing.Invoice, error) {
	var invoice *billing.Invoice

	err := s.uow.Execute(ctx, func(tx billing.TxContext) error {
		var err error
		invoice, err = tx.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}

		// A payment arriving after full settlement is an anomaly; the
		// invoice needs no further dunning.
		if invoice.IsPaid() {
			canceled, err := tx.Reminders().CancelByInvoice(ctx, invoiceID)
			if err != nil {
				return fmt.Errorf("failed to cancel reminders: %w", err)
			}
			s.logger.Warn("payment recorded against settled invoice, reminders canceled",
				zap.String("invoice_id", invoiceID.String()),
				zap.Int64("reminders_canceled", canceled),
			)
		}

		payment, err := billing.NewPayment(req.UserID, invoiceID, req.Amount, req.Method, req.PaidAt)
		if err != nil {
			return err
		}

		if err := invoice.ApplyPayment(req.Amount); err != nil {
			return err
		}

		if err := tx.Payments().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := tx.Invoices().Update(ctx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		s.logger.Info("payment applied",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.String("amount", req.Amount.String()),
			zap.String("status", invoice.Status.String()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// ReversePayment soft-deletes a payment and subtracts its amount from
// the invoice balance, re-deriving the status from the new balance.
func (s *SettlementService) ReversePayment(ctx context.Context, paymentID uuid.UUID) (*billing.Invoice, error) {
	var invoice *billing.Invoice

	err := s.uow.Execute(ctx, func(tx billing.TxContext) error {
		payment, err := tx.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}

		invoice, err = tx.Invoices().FindByID(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}

		if err := invoice.ReversePayment(payment.Amount); err != nil {
			return err
		}

		if err := tx.Payments().SoftDelete(ctx, paymentID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		if err := tx.Invoices().Update(ctx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		s.logger.Info("payment reversed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("payment_id", paymentID.String()),
			zap.String("amount", payment.Amount.String()),
			zap.String("status", invoice.Status.String()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// DeleteInvoice soft-deletes an invoice and raises the canceled flag on
// every reminder referencing it, as one atomic unit.
func (s *SettlementService) DeleteInvoice(ctx context.Context, invoiceID, ownerID uuid.UUID) error {
	return s.uow.Execute(ctx, func(tx billing.TxContext) error {
		invoice, err := tx.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.CreatedBy != ownerID {
			return shared.ErrNotFound
		}

		if err := tx.Invoices().SoftDelete(ctx, invoiceID, ownerID); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		suppressed, err := tx.Reminders().SuppressByInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to suppress reminders: %w", err)
		}

		s.logger.Info("invoice deleted",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int64("reminders_suppressed", suppressed),
		)
		return nil
	})
}
