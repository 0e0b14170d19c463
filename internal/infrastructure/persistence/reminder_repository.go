package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
)

// GormReminderRepository implements ReminderRepository using GORM
type GormReminderRepository struct {
	db *gorm.DB
}

// NewGormReminderRepository creates a new GormReminderRepository
func NewGormReminderRepository(db *gorm.DB) *GormReminderRepository {
	return &GormReminderRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction
func (r *GormReminderRepository) WithTx(tx *gorm.DB) *GormReminderRepository {
	return &GormReminderRepository{db: tx}
}

// FindByID finds a live reminder by its ID
func (r *GormReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reminder, error) {
	var model models.ReminderModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// dueReminderRow is the flat scan target for the due-set query
type dueReminderRow struct {
	models.ReminderModel
	UserName    string
	UserEmail   string
	ClientName  string
	ClientEmail string
}

// FindDue returns pending, non-canceled reminders due at or before the
// given instant, oldest due date first, with the owning user and the
// client joined in for delivery content.
func (r *GormReminderRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]billing.DueReminder, error) {
	var rows []dueReminderRow
	if err := r.db.WithContext(ctx).
		Table("reminders").
		Select("reminders.*, users.name AS user_name, users.email AS user_email, clients.name AS client_name, clients.email AS client_email").
		Joins("JOIN users ON users.id = reminders.user_id").
		Joins("JOIN clients ON clients.id = reminders.client_id").
		Where("reminders.status = ? AND reminders.canceled = FALSE AND reminders.due_date <= ? AND reminders.deleted_at IS NULL",
			billing.ReminderStatusPending, now).
		Order("reminders.due_date ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	due := make([]billing.DueReminder, len(rows))
	for i, row := range rows {
		due[i] = billing.DueReminder{
			Reminder: row.ReminderModel.ToDomain(),
			User: billing.User{
				ID:    row.UserID,
				Name:  row.UserName,
				Email: row.UserEmail,
			},
			Client: billing.Client{
				ID:    row.ClientID,
				Name:  row.ClientName,
				Email: row.ClientEmail,
			},
		}
	}
	return due, nil
}

// Save creates a new reminder
func (r *GormReminderRepository) Save(ctx context.Context, reminder *billing.Reminder) error {
	model := models.ReminderModelFromDomain(reminder)
	return r.db.WithContext(ctx).Create(model).Error
}

// ClaimScheduled marks the reminder SCHEDULED only while the row is
// still pending and not canceled. A zero-row match means a concurrent
// dispatcher claimed it or a cascade canceled it after the scan read.
func (r *GormReminderRepository) ClaimScheduled(ctx context.Context, reminder *billing.Reminder) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReminderModel{}).
		Where("id = ? AND status = ? AND canceled = FALSE AND deleted_at IS NULL",
			reminder.ID, billing.ReminderStatusPending).
		Updates(map[string]interface{}{
			"status":     billing.ReminderStatusScheduled,
			"updated_at": reminder.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CancelByInvoice moves every live reminder of the invoice to CANCELED
func (r *GormReminderRepository) CancelByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReminderModel{}).
		Where("invoice_id = ? AND status <> ? AND deleted_at IS NULL", invoiceID, billing.ReminderStatusCanceled).
		Updates(map[string]interface{}{
			"status":     billing.ReminderStatusCanceled,
			"canceled":   true,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// SuppressByInvoice raises the canceled flag on every live reminder of
// the invoice without changing status
func (r *GormReminderRepository) SuppressByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReminderModel{}).
		Where("invoice_id = ? AND canceled = FALSE AND deleted_at IS NULL", invoiceID).
		Updates(map[string]interface{}{
			"canceled":   true,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// FindByInvoice returns all live reminders referencing the invoice
func (r *GormReminderRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Reminder, error) {
	var reminderModels []models.ReminderModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND deleted_at IS NULL", invoiceID).
		Order("due_date ASC").
		Find(&reminderModels).Error; err != nil {
		return nil, err
	}
	reminders := make([]billing.Reminder, len(reminderModels))
	for i, model := range reminderModels {
		reminders[i] = *model.ToDomain()
	}
	return reminders, nil
}

// Ensure GormReminderRepository implements ReminderRepository
var _ billing.ReminderRepository = (*GormReminderRepository)(nil)
