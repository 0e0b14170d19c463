package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/job"
)

// GormUnitOfWork implements UnitOfWork on top of a GORM transaction
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a database transaction. The TxContext handed to
// fn is only valid until fn returns.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(tx billing.TxContext) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxContext{tx: tx})
	})
}

// gormTxContext exposes transaction-bound repositories
type gormTxContext struct {
	tx *gorm.DB
}

func (c *gormTxContext) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(c.tx)
}

func (c *gormTxContext) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(c.tx)
}

func (c *gormTxContext) Reminders() billing.ReminderRepository {
	return NewGormReminderRepository(c.tx)
}

func (c *gormTxContext) Jobs() job.Repository {
	return NewGormJobRepository(c.tx)
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ billing.UnitOfWork = (*GormUnitOfWork)(nil)
