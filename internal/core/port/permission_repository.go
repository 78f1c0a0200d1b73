package port

import (
	"context"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// PermissionFilter narrows permission listings.
type PermissionFilter struct {
	Limit  int
	Offset int
}

// PermissionRepository manages permission storage.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByKey(ctx context.Context, key string) (*domain.Permission, error)
	List(ctx context.Context, filter PermissionFilter) ([]domain.Permission, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error)
	ListByPosition(ctx context.Context, positionID string) ([]domain.Permission, error)
}
