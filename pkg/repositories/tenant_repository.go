package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/models"
)

// TenantRepository reads tenants. Tenants are provisioned outside this service.
type TenantRepository interface {
	Exists(ctx context.Context, tenantID uuid.UUID) (bool, error)
	Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
}

type tenantRepository struct{}

// NewTenantRepository creates a TenantRepository backed by PostgreSQL.
func NewTenantRepository() TenantRepository {
	return &tenantRepository{}
}

var _ TenantRepository = (*tenantRepository)(nil)

func (r *tenantRepository) Exists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, apperrors.ErrNoTenantScope
	}

	var exists bool
	err := scope.Conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant: %w", err)
	}
	return exists, nil
}

func (r *tenantRepository) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, apperrors.ErrNoTenantScope
	}

	var t models.Tenant
	err := scope.Conn.QueryRow(ctx, `SELECT id, name, created_at FROM tenants WHERE id = $1`, tenantID).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}
