package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/billing/backend/internal/domain/shared"
)

// ReminderStatus represents the lifecycle state of a dunning reminder
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "PENDING"   // Waiting for its due instant
	ReminderStatusScheduled ReminderStatus = "SCHEDULED" // Fired by the dispatch unit; terminal for the occurrence
	ReminderStatusCanceled  ReminderStatus = "CANCELED"  // Canceled by a settlement or delete cascade
	ReminderStatusSent      ReminderStatus = "SENT"      // Reserved for delivery-confirmation semantics
)

// IsValid checks if the status is a valid ReminderStatus
func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderStatusPending, ReminderStatusScheduled, ReminderStatusCanceled, ReminderStatusSent:
		return true
	}
	return false
}

// String returns the string representation of ReminderStatus
func (s ReminderStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s ReminderStatus) IsTerminal() bool {
	return s != ReminderStatusPending
}

// Reminder is a time-triggered dunning entry for an invoice.
// The Canceled flag suppresses dispatch independently of Status: the
// invoice-delete cascade raises it without touching Status, while the
// paid-invoice cascade moves Status to CANCELED.
type Reminder struct {
	shared.BaseEntity
	UserID       uuid.UUID      `json:"user_id"`
	ClientID     uuid.UUID      `json:"client_id"`
	InvoiceID    uuid.UUID      `json:"invoice_id"`
	Status       ReminderStatus `json:"status"`
	IsRecurring  bool           `json:"is_recurring"`
	IntervalDays int            `json:"interval_days"`
	DueDate      time.Time      `json:"due_date"`
	Canceled     bool           `json:"canceled"`
}

// NewReminder creates a new pending reminder.
// A recurring reminder must carry an interval of at least one day; the
// same-instant recurrence an interval of zero would produce is rejected
// up front rather than guarded at every scan.
func NewReminder(userID, clientID, invoiceID uuid.UUID, dueDate time.Time, isRecurring bool, intervalDays int) (*Reminder, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Reminder user cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Reminder client cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Reminder invoice cannot be empty")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Reminder due date cannot be empty")
	}
	if isRecurring && intervalDays < 1 {
		return nil, shared.NewDomainError("INVALID_INTERVAL", "Recurring reminder interval must be at least one day")
	}
	if !isRecurring {
		intervalDays = 0
	}

	return &Reminder{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		ClientID:     clientID,
		InvoiceID:    invoiceID,
		Status:       ReminderStatusPending,
		IsRecurring:  isRecurring,
		IntervalDays: intervalDays,
		DueDate:      dueDate,
		Canceled:     false,
	}, nil
}

// IsDue returns true if the reminder should be dispatched at the given instant
func (r *Reminder) IsDue(now time.Time) bool {
	return r.Status == ReminderStatusPending && !r.Canceled && !r.DueDate.After(now)
}

// MarkScheduled marks the reminder as fired. The row is never reused for
// a later occurrence; recurrence inserts a successor instead.
func (r *Reminder) MarkScheduled() error {
	if r.Status != ReminderStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending reminders can be scheduled")
	}
	r.Status = ReminderStatusScheduled
	r.Touch()
	return nil
}

// Cancel moves the reminder to the CANCELED status (paid-invoice cascade)
func (r *Reminder) Cancel() {
	r.Status = ReminderStatusCanceled
	r.Canceled = true
	r.Touch()
}

// Suppress raises the canceled flag without changing status
// (invoice-delete cascade)
func (r *Reminder) Suppress() {
	r.Canceled = true
	r.Touch()
}

// NextOccurrence returns the successor pending reminder for a recurring
// reminder, or nil when the lineage naturally terminates. An interval
// below one day terminates the lineage even when IsRecurring is set.
func (r *Reminder) NextOccurrence() *Reminder {
	if !r.IsRecurring || r.IntervalDays < 1 {
		return nil
	}
	return &Reminder{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       r.UserID,
		ClientID:     r.ClientID,
		InvoiceID:    r.InvoiceID,
		Status:       ReminderStatusPending,
		IsRecurring:  r.IsRecurring,
		IntervalDays: r.IntervalDays,
		DueDate:      r.DueDate.AddDate(0, 0, r.IntervalDays),
		Canceled:     false,
	}
}
