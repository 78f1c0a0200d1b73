package port

import (
	"context"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// PositionRepository handles position storage and position→permission mappings.
type PositionRepository interface {
	Create(ctx context.Context, position domain.Position) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Position, error)
	GetByKey(ctx context.Context, key string) (*domain.Position, error)
	GetByID(ctx context.Context, id string) (*domain.Position, error)
	ListByKeys(ctx context.Context, keys []string) ([]domain.Position, error)
	// ReplaceMappings swaps the position's permission set atomically inside
	// one transaction, mirroring RoleRepository.ReplaceMappings.
	ReplaceMappings(ctx context.Context, positionID string, permissionIDs []string) error
}
