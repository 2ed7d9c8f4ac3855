// Package models contains domain types for ekaya-rag.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary. Tenants are provisioned outside this service.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
