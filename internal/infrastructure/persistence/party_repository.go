package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
)

// GormPartyRepository implements PartyRepository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// FindUser finds a user projection by ID
func (r *GormPartyRepository) FindUser(ctx context.Context, id uuid.UUID) (billing.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billing.User{}, shared.ErrNotFound
		}
		return billing.User{}, err
	}
	return model.ToDomain(), nil
}

// FindClient finds a client projection by ID
func (r *GormPartyRepository) FindClient(ctx context.Context, id uuid.UUID) (billing.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billing.Client{}, shared.ErrNotFound
		}
		return billing.Client{}, err
	}
	return model.ToDomain(), nil
}

// Ensure GormPartyRepository implements PartyRepository
var _ billing.PartyRepository = (*GormPartyRepository)(nil)
