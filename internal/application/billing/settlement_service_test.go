package billing

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
	"github.com/billing/backend/internal/domain/job"
	"github.com/billing/backend/internal/domain/shared"
)

// Mock implementations

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *mockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockReminderRepository struct {
	mock.Mock
}

func (m *mockReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reminder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Reminder), args.Error(1)
}

func (m *mockReminderRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]billing.DueReminder, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.DueReminder), args.Error(1)
}

func (m *mockReminderRepository) Save(ctx context.Context, reminder *billing.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *mockReminderRepository) ClaimScheduled(ctx context.Context, reminder *billing.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *mockReminderRepository) CancelByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReminderRepository) SuppressByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReminderRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Reminder, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Reminder), args.Error(1)
}

type mockJobRepository struct {
	mock.Mock
}

func (m *mockJobRepository) Save(ctx context.Context, jobs ...*job.Job) error {
	args := m.Called(ctx, jobs)
	return args.Error(0)
}

func (m *mockJobRepository) FindRunnable(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Job), args.Error(1)
}

func (m *mockJobRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*job.Job, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Job), args.Error(1)
}

func (m *mockJobRepository) Update(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *mockJobRepository) RequeueStale(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockJobRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// fakeTxContext wires the mocks into one transaction context
type fakeTxContext struct {
	invoices  *mockInvoiceRepository
	payments  *mockPaymentRepository
	reminders *mockReminderRepository
	jobs      *mockJobRepository
}

func (f *fakeTxContext) Invoices() billing.InvoiceRepository   { return f.invoices }
func (f *fakeTxContext) Payments() billing.PaymentRepository   { return f.payments }
func (f *fakeTxContext) Reminders() billing.ReminderRepository { return f.reminders }
func (f *fakeTxContext) Jobs() job.Repository                  { return f.jobs }

// fakeUnitOfWork runs the function directly against the fake context
type fakeUnitOfWork struct {
	tx *fakeTxContext
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(tx billing.TxContext) error) error {
	return fn(u.tx)
}

func newTestService(t *testing.T) (*SettlementService, *fakeTxContext) {
	t.Helper()
	tx := &fakeTxContext{
		invoices:  &mockInvoiceRepository{},
		payments:  &mockPaymentRepository{},
		reminders: &mockReminderRepository{},
		jobs:      &mockJobRepository{},
	}
	svc := NewSettlementService(&fakeUnitOfWork{tx: tx}, zap.NewNop())
	return svc, tx
}

func newUnpaidInvoice(t *testing.T, total string) *billing.Invoice {
	t.Helper()
	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)
	inv, err := billing.NewInvoice(uuid.New(), uuid.New(), "INV-100", amount, time.Now().AddDate(0, 0, 14))
	require.NoError(t, err)
	return inv
}

func TestSettlementService_ApplyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("partial payment moves invoice to partially paid", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "1500.00")

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		tx.payments.On("Save", ctx, mock.AnythingOfType("*billing.Payment")).Return(nil)
		tx.invoices.On("Update", ctx, invoice).Return(nil)

		result, err := svc.ApplyPayment(ctx, invoice.ID, ApplyPaymentRequest{
			UserID: invoice.CreatedBy,
			Amount: decimal.NewFromFloat(500.00),
			Method: "bank_transfer",
		})

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPartiallyPaid, result.Status)
		assert.True(t, result.AmountPaid.Equal(decimal.NewFromFloat(500.00)))
		tx.reminders.AssertNotCalled(t, "CancelByInvoice", mock.Anything, mock.Anything)
	})

	t.Run("payment covering the balance settles the invoice", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "1500.00")
		require.NoError(t, invoice.ApplyPayment(decimal.NewFromFloat(500.00)))

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		tx.payments.On("Save", ctx, mock.AnythingOfType("*billing.Payment")).Return(nil)
		tx.invoices.On("Update", ctx, invoice).Return(nil)

		result, err := svc.ApplyPayment(ctx, invoice.ID, ApplyPaymentRequest{
			UserID: invoice.CreatedBy,
			Amount: decimal.NewFromFloat(1000.00),
		})

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPaid, result.Status)
		assert.True(t, result.AmountPaid.Equal(decimal.NewFromFloat(1500.00)))
	})

	t.Run("payment against settled invoice cancels its reminders", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "100.00")
		require.NoError(t, invoice.ApplyPayment(decimal.NewFromInt(100)))
		require.True(t, invoice.IsPaid())

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		tx.reminders.On("CancelByInvoice", ctx, invoice.ID).Return(int64(2), nil)
		tx.payments.On("Save", ctx, mock.AnythingOfType("*billing.Payment")).Return(nil)
		tx.invoices.On("Update", ctx, invoice).Return(nil)

		_, err := svc.ApplyPayment(ctx, invoice.ID, ApplyPaymentRequest{
			UserID: invoice.CreatedBy,
			Amount: decimal.NewFromInt(10),
		})

		require.NoError(t, err)
		tx.reminders.AssertCalled(t, "CancelByInvoice", ctx, invoice.ID)
	})

	t.Run("missing invoice surfaces not found", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoiceID := uuid.New()

		tx.invoices.On("FindByID", ctx, invoiceID).Return(nil, shared.ErrNotFound)

		_, err := svc.ApplyPayment(ctx, invoiceID, ApplyPaymentRequest{
			UserID: uuid.New(),
			Amount: decimal.NewFromInt(10),
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("payment write failure aborts the unit", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "100.00")

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		tx.payments.On("Save", ctx, mock.AnythingOfType("*billing.Payment")).Return(errors.New("connection reset"))

		_, err := svc.ApplyPayment(ctx, invoice.ID, ApplyPaymentRequest{
			UserID: invoice.CreatedBy,
			Amount: decimal.NewFromInt(10),
		})

		assert.Error(t, err)
		tx.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "100.00")

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		_, err := svc.ApplyPayment(ctx, invoice.ID, ApplyPaymentRequest{
			UserID: invoice.CreatedBy,
			Amount: decimal.Zero,
		})

		assert.Error(t, err)
		tx.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestSettlementService_ReversePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("reversal re-derives status from new balance", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "1500.00")
		require.NoError(t, invoice.ApplyPayment(decimal.NewFromFloat(1500.00)))

		payment, err := billing.NewPayment(invoice.CreatedBy, invoice.ID, decimal.NewFromFloat(1000.00), "card", time.Now())
		require.NoError(t, err)

		tx.payments.On("FindByID", ctx, payment.ID).Return(payment, nil)
		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		tx.payments.On("SoftDelete", ctx, payment.ID).Return(nil)
		tx.invoices.On("Update", ctx, invoice).Return(nil)

		result, err := svc.ReversePayment(ctx, payment.ID)

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPartiallyPaid, result.Status)
		assert.True(t, result.AmountPaid.Equal(decimal.NewFromFloat(500.00)))
	})

	t.Run("missing payment surfaces not found", func(t *testing.T) {
		svc, tx := newTestService(t)
		paymentID := uuid.New()

		tx.payments.On("FindByID", ctx, paymentID).Return(nil, shared.ErrNotFound)

		_, err := svc.ReversePayment(ctx, paymentID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestSettlementService_DeleteInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("soft-deletes invoice and suppresses all reminders", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "100.00")

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		tx.invoices.On("SoftDelete", ctx, invoice.ID, invoice.CreatedBy).Return(nil)
		tx.reminders.On("SuppressByInvoice", ctx, invoice.ID).Return(int64(2), nil)

		err := svc.DeleteInvoice(ctx, invoice.ID, invoice.CreatedBy)

		require.NoError(t, err)
		tx.reminders.AssertCalled(t, "SuppressByInvoice", ctx, invoice.ID)
	})

	t.Run("owner mismatch surfaces not found", func(t *testing.T) {
		svc, tx := newTestService(t)
		invoice := newUnpaidInvoice(t, "100.00")

		tx.invoices.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		err := svc.DeleteInvoice(ctx, invoice.ID, uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
		tx.invoices.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	})
}
