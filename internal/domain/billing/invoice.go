package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billing/backend/internal/domain/shared"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "UNPAID"         // No payment recorded yet
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // 0 < amount_paid < total_amount
	InvoiceStatusPaid          InvoiceStatus = "PAID"           // amount_paid >= total_amount
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"        // Display-only, set outside settlement
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is the aggregate root for a billable invoice.
// Settlement is the only writer of AmountPaid and Status; the OVERDUE
// status is orthogonal to settlement and never derived here.
type Invoice struct {
	shared.BaseAggregateRoot
	CreatedBy   uuid.UUID       `json:"created_by"`
	ClientID    uuid.UUID       `json:"client_id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      InvoiceStatus   `json:"status"`
	DueDate     time.Time       `json:"due_date"`
}

// NewInvoice creates a new unpaid invoice
func NewInvoice(createdBy, clientID uuid.UUID, number string, totalAmount decimal.Decimal, dueDate time.Time) (*Invoice, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Invoice owner cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CreatedBy:         createdBy,
		ClientID:          clientID,
		Number:            number,
		TotalAmount:       totalAmount,
		AmountPaid:        decimal.Zero,
		Status:            InvoiceStatusUnpaid,
		DueDate:           dueDate,
	}, nil
}

// ApplyPayment adds a payment amount to the invoice balance and
// recomputes the status. Status only moves forward along
// UNPAID -> PARTIALLY_PAID -> PAID.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if inv.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply payment to a deleted invoice")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Payment amount must be positive, got %s", amount))
	}

	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.Status = inv.statusForBalance()
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// ReversePayment subtracts a deleted payment's amount from the balance
// and re-derives the status from the new balance.
func (inv *Invoice) ReversePayment(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Reversal amount must be positive, got %s", amount))
	}

	inv.AmountPaid = inv.AmountPaid.Sub(amount)
	if inv.AmountPaid.IsNegative() {
		inv.AmountPaid = decimal.Zero
	}
	inv.Status = inv.statusForBalance()
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// statusForBalance derives the settlement status from the current balance
func (inv *Invoice) statusForBalance() InvoiceStatus {
	switch {
	case inv.AmountPaid.GreaterThanOrEqual(inv.TotalAmount):
		return InvoiceStatusPaid
	case inv.AmountPaid.IsPositive():
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusUnpaid
	}
}

// SoftDelete marks the invoice as deleted
func (inv *Invoice) SoftDelete() error {
	if inv.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already deleted")
	}
	inv.MarkDeleted()
	inv.IncrementVersion()
	return nil
}

// IsPaid returns true if the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// Outstanding returns the remaining amount due
func (inv *Invoice) Outstanding() decimal.Decimal {
	out := inv.TotalAmount.Sub(inv.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
