package dunning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

func newReminderFixture(t *testing.T) (*ReminderService, *mockInvoiceRepository, *mockReminderRepository) {
	t.Helper()
	invoices := &mockInvoiceRepository{}
	reminders := &mockReminderRepository{}
	svc := NewReminderService(invoices, reminders, DefaultReminderServiceConfig(), zap.NewNop())
	return svc, invoices, reminders
}

func seededInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(uuid.New(), uuid.New(), "INV-300", decimal.NewFromInt(200), time.Now().AddDate(0, 0, 14))
	require.NoError(t, err)
	return inv
}

func TestReminderService_CreateReminder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending reminder for invoice", func(t *testing.T) {
		svc, invoices, reminders := newReminderFixture(t)
		invoice := seededInvoice(t)
		dueDate := time.Now().Add(48 * time.Hour).Truncate(time.Second)

		invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		reminders.On("Save", ctx, mock.AnythingOfType("*billing.Reminder")).Return(nil)

		reminder, err := svc.CreateReminder(ctx, CreateReminderRequest{
			InvoiceID:    invoice.ID,
			DueDate:      dueDate.Format(time.RFC3339),
			IsRecurring:  true,
			IntervalDays: 7,
		})

		require.NoError(t, err)
		assert.Equal(t, billing.ReminderStatusPending, reminder.Status)
		assert.Equal(t, invoice.CreatedBy, reminder.UserID)
		assert.Equal(t, invoice.ClientID, reminder.ClientID)
		assert.True(t, reminder.DueDate.Equal(dueDate))
	})

	t.Run("rejects malformed due date before any lookup", func(t *testing.T) {
		svc, invoices, reminders := newReminderFixture(t)

		_, err := svc.CreateReminder(ctx, CreateReminderRequest{
			InvoiceID: uuid.New(),
			DueDate:   "next tuesday",
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_DUE_DATE", domainErr.Code)
		invoices.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		reminders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects past due date", func(t *testing.T) {
		svc, _, reminders := newReminderFixture(t)

		_, err := svc.CreateReminder(ctx, CreateReminderRequest{
			InvoiceID: uuid.New(),
			DueDate:   time.Now().Add(-time.Hour).Format(time.RFC3339),
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PAST_DUE_DATE", domainErr.Code)
		reminders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects recurring reminder without positive interval", func(t *testing.T) {
		svc, invoices, reminders := newReminderFixture(t)
		invoice := seededInvoice(t)

		invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		_, err := svc.CreateReminder(ctx, CreateReminderRequest{
			InvoiceID:    invoice.ID,
			DueDate:      time.Now().Add(time.Hour).Format(time.RFC3339),
			IsRecurring:  true,
			IntervalDays: 0,
		})

		assert.Error(t, err)
		reminders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing invoice surfaces not found", func(t *testing.T) {
		svc, invoices, _ := newReminderFixture(t)
		invoiceID := uuid.New()

		invoices.On("FindByID", ctx, invoiceID).Return(nil, shared.ErrNotFound)

		_, err := svc.CreateReminder(ctx, CreateReminderRequest{
			InvoiceID: invoiceID,
			DueDate:   time.Now().Add(time.Hour).Format(time.RFC3339),
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReminderService_SeedInvoiceReminders(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the recurring and the notify-before reminder", func(t *testing.T) {
		svc, _, reminders := newReminderFixture(t)
		invoice := seededInvoice(t)

		var seeded []*billing.Reminder
		reminders.On("Save", ctx, mock.AnythingOfType("*billing.Reminder")).
			Run(func(args mock.Arguments) {
				seeded = append(seeded, args.Get(1).(*billing.Reminder))
			}).
			Return(nil)

		svc.SeedInvoiceReminders(ctx, invoice)

		require.Len(t, seeded, 2)

		recurring := seeded[0]
		assert.True(t, recurring.IsRecurring)
		assert.Equal(t, 7, recurring.IntervalDays)
		assert.True(t, recurring.DueDate.Equal(invoice.DueDate))

		headsUp := seeded[1]
		assert.False(t, headsUp.IsRecurring)
		assert.True(t, headsUp.DueDate.Equal(invoice.DueDate.AddDate(0, 0, -3)))
	})

	t.Run("seeding failure is logged, never propagated", func(t *testing.T) {
		svc, _, reminders := newReminderFixture(t)
		invoice := seededInvoice(t)

		reminders.On("Save", ctx, mock.AnythingOfType("*billing.Reminder")).
			Return(errors.New("connection reset"))

		assert.NotPanics(t, func() {
			svc.SeedInvoiceReminders(ctx, invoice)
		})
	})
}
