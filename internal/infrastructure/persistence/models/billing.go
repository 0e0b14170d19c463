package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// UserModel is the persistence model for the invoice-owner projection.
// User accounts are managed elsewhere; this table is read-only here.
type UserModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key"`
	Name  string    `gorm:"type:varchar(200);not null"`
	Email string    `gorm:"type:varchar(320);not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User projection
func (m *UserModel) ToDomain() billing.User {
	return billing.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}

// ClientModel is the persistence model for the counterparty projection
type ClientModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key"`
	Name  string    `gorm:"type:varchar(200);not null"`
	Email string    `gorm:"type:varchar(320);not null"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client projection
func (m *ClientModel) ToDomain() billing.Client {
	return billing.Client{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	AggregateModel
	CreatedBy   uuid.UUID             `gorm:"type:uuid;not null;index"`
	ClientID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Number      string                `gorm:"type:varchar(50);not null;index"`
	TotalAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	AmountPaid  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status      billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	DueDate     time.Time             `gorm:"not null;index"`
	DeletedAt   *time.Time            `gorm:"index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		CreatedBy:   m.CreatedBy,
		ClientID:    m.ClientID,
		Number:      m.Number,
		TotalAmount: m.TotalAmount,
		AmountPaid:  m.AmountPaid,
		Status:      m.Status,
		DueDate:     m.DueDate,
	}
	inv.DeletedAt = m.DeletedAt
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.CreatedBy = inv.CreatedBy
	m.ClientID = inv.ClientID
	m.Number = inv.Number
	m.TotalAmount = inv.TotalAmount
	m.AmountPaid = inv.AmountPaid
	m.Status = inv.Status
	m.DueDate = inv.DueDate
	m.DeletedAt = inv.DeletedAt
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment entity
type PaymentModel struct {
	BaseModel
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method    string          `gorm:"type:varchar(50)"`
	PaidAt    time.Time       `gorm:"not null"`
	DeletedAt *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		Method:     m.Method,
		PaidAt:     m.PaidAt,
	}
	p.DeletedAt = m.DeletedAt
	return p
}

// FromDomain populates the persistence model from a domain Payment entity
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.UserID = p.UserID
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.Method = p.Method
	m.PaidAt = p.PaidAt
	m.DeletedAt = p.DeletedAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// ReminderModel is the persistence model for the Reminder entity
type ReminderModel struct {
	BaseModel
	UserID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	ClientID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	InvoiceID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	Status       billing.ReminderStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	IsRecurring  bool                   `gorm:"not null;default:false"`
	IntervalDays int                    `gorm:"not null;default:0"`
	DueDate      time.Time              `gorm:"not null;index"`
	Canceled     bool                   `gorm:"not null;default:false"`
	DeletedAt    *time.Time             `gorm:"index"`
}

// TableName returns the table name for GORM
func (ReminderModel) TableName() string {
	return "reminders"
}

// ToDomain converts the persistence model to a domain Reminder entity
func (m *ReminderModel) ToDomain() *billing.Reminder {
	r := &billing.Reminder{
		BaseEntity:   m.BaseModel.ToDomain(),
		UserID:       m.UserID,
		ClientID:     m.ClientID,
		InvoiceID:    m.InvoiceID,
		Status:       m.Status,
		IsRecurring:  m.IsRecurring,
		IntervalDays: m.IntervalDays,
		DueDate:      m.DueDate,
		Canceled:     m.Canceled,
	}
	r.DeletedAt = m.DeletedAt
	return r
}

// FromDomain populates the persistence model from a domain Reminder entity
func (m *ReminderModel) FromDomain(r *billing.Reminder) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.UserID = r.UserID
	m.ClientID = r.ClientID
	m.InvoiceID = r.InvoiceID
	m.Status = r.Status
	m.IsRecurring = r.IsRecurring
	m.IntervalDays = r.IntervalDays
	m.DueDate = r.DueDate
	m.Canceled = r.Canceled
	m.DeletedAt = r.DeletedAt
}

// ReminderModelFromDomain creates a new persistence model from a domain Reminder
func ReminderModelFromDomain(r *billing.Reminder) *ReminderModel {
	m := &ReminderModel{}
	m.FromDomain(r)
	return m
}
