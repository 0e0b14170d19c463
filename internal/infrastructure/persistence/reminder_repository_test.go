package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// newMockReminderRepository creates a GormReminderRepository with a mocked SQL connection
func newMockReminderRepository(t *testing.T) (*GormReminderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormReminderRepository(gormDB), mock, mockDB
}

func TestGormReminderRepository_FindDue(t *testing.T) {
	t.Run("joins user and client into the due set", func(t *testing.T) {
		repo, mock, mockDB := newMockReminderRepository(t)
		defer mockDB.Close()

		reminderID := uuid.New()
		userID := uuid.New()
		clientID := uuid.New()
		invoiceID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"id", "created_at", "updated_at",
			"user_id", "client_id", "invoice_id", "status", "is_recurring", "interval_days", "due_date", "canceled", "deleted_at",
			"user_name", "user_email", "client_name", "client_email",
		}).AddRow(
			reminderID, now, now,
			userID, clientID, invoiceID, "PENDING", true, 7, now.Add(-time.Hour), false, nil,
			"Ada", "ada@example.com", "Acme GmbH", "billing@acme.example",
		)

		mock.ExpectQuery(`SELECT reminders\.\*, users\.name AS user_name, .* FROM reminders JOIN users ON users\.id = reminders\.user_id JOIN clients ON clients\.id = reminders\.client_id WHERE .*`).
			WillReturnRows(rows)

		due, err := repo.FindDue(context.Background(), now, 100)

		assert.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, reminderID, due[0].Reminder.ID)
		assert.Equal(t, billing.ReminderStatusPending, due[0].Reminder.Status)
		assert.Equal(t, "Ada", due[0].User.Name)
		assert.Equal(t, "billing@acme.example", due[0].Client.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReminderRepository_ClaimScheduled(t *testing.T) {
	newScheduledReminder := func(t *testing.T) *billing.Reminder {
		t.Helper()
		r, err := billing.NewReminder(uuid.New(), uuid.New(), uuid.New(), time.Now().Add(-time.Hour), true, 7)
		require.NoError(t, err)
		require.NoError(t, r.MarkScheduled())
		return r
	}

	t.Run("claims a pending reminder", func(t *testing.T) {
		repo, mock, mockDB := newMockReminderRepository(t)
		defer mockDB.Close()

		reminder := newScheduledReminder(t)

		mock.ExpectExec(`UPDATE "reminders" SET .* WHERE id = \$\d+ AND status = \$\d+ AND canceled = FALSE AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ClaimScheduled(context.Background(), reminder)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row already claimed or canceled surfaces a conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockReminderRepository(t)
		defer mockDB.Close()

		reminder := newScheduledReminder(t)

		mock.ExpectExec(`UPDATE "reminders" SET .* WHERE id = \$\d+ AND status = \$\d+ AND canceled = FALSE AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ClaimScheduled(context.Background(), reminder)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReminderRepository_CancelByInvoice(t *testing.T) {
	t.Run("cancels every live reminder of the invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockReminderRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "reminders" SET .* WHERE invoice_id = \$\d+ AND status <> \$\d+ AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 3))

		affected, err := repo.CancelByInvoice(context.Background(), uuid.New())

		assert.NoError(t, err)
		assert.Equal(t, int64(3), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReminderRepository_SuppressByInvoice(t *testing.T) {
	t.Run("raises the canceled flag without touching status", func(t *testing.T) {
		repo, mock, mockDB := newMockReminderRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "reminders" SET .* WHERE invoice_id = \$\d+ AND canceled = FALSE AND deleted_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		affected, err := repo.SuppressByInvoice(context.Background(), uuid.New())

		assert.NoError(t, err)
		assert.Equal(t, int64(2), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
