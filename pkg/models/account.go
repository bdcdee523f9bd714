package models

import "time"

// Account is a bank or cash account transactions are imported into
type Account struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	Name        string     `json:"name" db:"name"`
	Institution *string    `json:"institution,omitempty" db:"institution"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateAccountRequest is the request to create an account
type CreateAccountRequest struct {
	Name        string  `json:"name" validate:"required"`
	Institution *string `json:"institution,omitempty"`
}

// AccountListResponse is the response for listing accounts
type AccountListResponse struct {
	Items      []Account `json:"items"`
	TotalCount int       `json:"total_count"`
}
