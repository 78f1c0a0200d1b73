package port

import (
	"context"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// RoleRepository handles role storage and role→permission mappings.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Role, error)
	GetByKey(ctx context.Context, key string) (*domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	ListByKeys(ctx context.Context, keys []string) ([]domain.Role, error)
	// ReplaceMappings swaps the role's permission set atomically: existing
	// mappings are deleted and the new set inserted inside one transaction,
	// so readers never observe a partial set.
	ReplaceMappings(ctx context.Context, roleID string, permissionIDs []string) error
}
