package billing

import (
	"context"

	"github.com/billing/backend/internal/domain/job"
)

// TxContext exposes the repositories participating in one transaction
type TxContext interface {
	Invoices() InvoiceRepository
	Payments() PaymentRepository
	Reminders() ReminderRepository
	Jobs() job.Repository
}

// UnitOfWork runs a function against transactional repositories. Either
// every write inside fn becomes visible or none does; the dispatch unit
// and the settlement operations rely on this contract.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx TxContext) error) error
}
