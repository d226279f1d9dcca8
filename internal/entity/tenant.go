package entity

import (
	"context"
	"time"
)

// Tenants are created and managed elsewhere; the gateway only checks that one
// exists before writing anything under it.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type TenantRepositoryInterface interface {
	Exists(ctx context.Context, tenantID string) (bool, error)
}
