package port

import (
	"context"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// FieldRuleRepository stores field-level visibility rules.
type FieldRuleRepository interface {
	// Upsert inserts the rule or replaces the existing rule for the same
	// (permission, role) or (permission, position) pair.
	Upsert(ctx context.Context, rule domain.FieldRule) error
	Delete(ctx context.Context, id string) error
	// ListByPermission returns every rule configured for the permission,
	// regardless of scope.
	ListByPermission(ctx context.Context, permissionID string) ([]domain.FieldRule, error)
	ListAll(ctx context.Context) ([]domain.FieldRule, error)
}
