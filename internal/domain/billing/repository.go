package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DueReminder is a reminder eligible for dispatch together with the
// eagerly loaded user and client needed for delivery content.
type DueReminder struct {
	Reminder *Reminder
	User     User
	Client   Client
}

// InvoiceRepository is the persistence boundary for invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// Save persists a new invoice
	Save(ctx context.Context, invoice *Invoice) error
	// Update persists changes with optimistic locking; returns
	// shared.ErrConcurrencyConflict when the version moved underneath
	Update(ctx context.Context, invoice *Invoice) error
	// SoftDelete marks the invoice deleted for the given owner
	SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error
}

// PartyRepository reads the user and client projections owned by other
// parts of the system
type PartyRepository interface {
	FindUser(ctx context.Context, id uuid.UUID) (User, error)
	FindClient(ctx context.Context, id uuid.UUID) (Client, error)
}

// PaymentRepository is the persistence boundary for payment facts
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ReminderRepository is the persistence boundary for reminder rows
type ReminderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	// FindDue returns reminders that are pending, not canceled and due at
	// or before the given instant, with user and client joined in.
	// Re-reading before a reminder's status changes returns it again; the
	// idempotency boundary is the dispatch unit, not the scan.
	FindDue(ctx context.Context, now time.Time, limit int) ([]DueReminder, error)
	Save(ctx context.Context, reminder *Reminder) error
	// ClaimScheduled transitions the reminder to SCHEDULED only while it
	// is still pending and not canceled; returns
	// shared.ErrConcurrencyConflict when another writer got there first.
	// The claim is the idempotency boundary of the dispatch unit.
	ClaimScheduled(ctx context.Context, reminder *Reminder) error
	// CancelByInvoice moves every reminder of the invoice to CANCELED
	// (full-settlement cascade)
	CancelByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	// SuppressByInvoice raises the canceled flag on every reminder of the
	// invoice regardless of status (invoice-delete cascade)
	SuppressByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	// FindByInvoice returns all live reminders referencing the invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Reminder, error)
}
