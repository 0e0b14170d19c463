package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and lifecycle timestamps shared by
// every billing entity, including the soft-delete marker: rows are
// retired by setting DeletedAt, never removed, so payment history and
// reminder lineages stay auditable.
type BaseEntity struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewBaseEntity creates a live entity base with a fresh ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch advances the update timestamp
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// MarkDeleted retires the entity without destroying the row
func (e *BaseEntity) MarkDeleted() {
	now := time.Now()
	e.DeletedAt = &now
	e.UpdatedAt = now
}

// IsDeleted reports whether the entity has been soft-deleted
func (e *BaseEntity) IsDeleted() bool {
	return e.DeletedAt != nil
}
