package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billing/backend/internal/domain/shared"
)

// Payment is an immutable record of money received against an invoice.
// Once applied to an invoice balance it is never edited; deleting a
// payment reverses its effect through settlement.
type Payment struct {
	shared.BaseEntity
	UserID    uuid.UUID       `json:"user_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	PaidAt    time.Time       `json:"paid_at"`
}

// NewPayment creates a new payment record
func NewPayment(userID, invoiceID uuid.UUID, amount decimal.Decimal, method string, paidAt time.Time) (*Payment, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Payment user cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Payment invoice cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return &Payment{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		InvoiceID:  invoiceID,
		Amount:     amount,
		Method:     method,
		PaidAt:     paidAt,
	}, nil
}
