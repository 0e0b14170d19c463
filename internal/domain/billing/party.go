package billing

import (
	"github.com/google/uuid"
)

// User is the read-only projection of an invoice owner needed for
// reminder delivery content. User management is handled elsewhere.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Client is the read-only projection of an invoice counterparty needed
// for reminder delivery content.
type Client struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
