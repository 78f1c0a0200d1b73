package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
)

var (
	// ErrPermissionExists indicates a permission with the provided key already exists.
	ErrPermissionExists = errors.New("permission already exists")
	// ErrInvalidPermissionKey indicates the permission key is empty or malformed.
	ErrInvalidPermissionKey = errors.New("invalid permission key")
	// ErrInvalidRuleScope indicates a field rule names both a role and a
	// position, or neither. Scoping is mutually exclusive.
	ErrInvalidRuleScope = errors.New("field rule must scope exactly one of role or position")
	// ErrInvalidFieldMode indicates an unknown field rule mode.
	ErrInvalidFieldMode = errors.New("invalid field rule mode")
	// ErrNoFields indicates a field rule without field names.
	ErrNoFields = errors.New("field rule requires at least one field")
)

// CreatePermissionInput captures the payload for creating a permission.
type CreatePermissionInput struct {
	Key         string
	Description *string
}

// CreateSubjectInput captures the payload for creating a role or position.
type CreateSubjectInput struct {
	Key         string
	UnitScope   *string
	Description *string
}

// FieldRuleInput captures the payload for upserting a field rule.
type FieldRuleInput struct {
	PermissionKey string
	RoleKey       *string
	PositionKey   *string
	Mode          domain.FieldMode
	Fields        []string
}

// PermissionService manages the permission model: permissions, roles,
// positions, their mappings, and field rules. Every mutation invalidates
// the permission cache so the engine picks up fresh state.
type PermissionService struct {
	permissions port.PermissionRepository
	roles       port.RoleRepository
	positions   port.PositionRepository
	fieldRules  port.FieldRuleRepository
	cache       *PermissionCache
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(
	permissions port.PermissionRepository,
	roles port.RoleRepository,
	positions port.PositionRepository,
	fieldRules port.FieldRuleRepository,
	cache *PermissionCache,
) *PermissionService {
	return &PermissionService{
		permissions: permissions,
		roles:       roles,
		positions:   positions,
		fieldRules:  fieldRules,
		cache:       cache,
	}
}

// GetPermission retrieves a permission by its unique key.
func (s *PermissionService) GetPermission(ctx context.Context, key string) (*domain.Permission, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidPermissionKey
	}

	permission, err := s.permissions.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}

	return permission, nil
}

// ListPermissionsForRole returns the permissions mapped to the role key.
func (s *PermissionService) ListPermissionsForRole(ctx context.Context, roleKey string) ([]domain.Permission, error) {
	role, err := s.roles.GetByKey(ctx, strings.TrimSpace(roleKey))
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}

	permissions, err := s.permissions.ListByRole(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("list permissions for role: %w", err)
	}

	return permissions, nil
}

// ListPermissionsForPosition returns the permissions mapped to the position key.
func (s *PermissionService) ListPermissionsForPosition(ctx context.Context, positionKey string) ([]domain.Permission, error) {
	position, err := s.positions.GetByKey(ctx, strings.TrimSpace(positionKey))
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}

	permissions, err := s.permissions.ListByPosition(ctx, position.ID)
	if err != nil {
		return nil, fmt.Errorf("list permissions for position: %w", err)
	}

	return permissions, nil
}

// CreatePermission provisions a new permission.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*domain.Permission, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" || !strings.Contains(key, ":") {
		return nil, ErrInvalidPermissionKey
	}

	if existing, err := s.permissions.GetByKey(ctx, key); err == nil && existing != nil {
		return nil, ErrPermissionExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup permission by key: %w", err)
	}

	permission := domain.Permission{
		ID:  uuid.NewString(),
		Key: key,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			permission.Description = &trimmed
		}
	}

	if err := s.permissions.Create(ctx, permission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	s.cache.Invalidate()
	return &permission, nil
}

// DeletePermission removes a permission by ID.
func (s *PermissionService) DeletePermission(ctx context.Context, permissionID string) error {
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return fmt.Errorf("permission id is required")
	}

	if err := s.permissions.Delete(ctx, permissionID); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	s.cache.Invalidate()
	return nil
}

// CreateRole provisions a new role.
func (s *PermissionService) CreateRole(ctx context.Context, input CreateSubjectInput) (*domain.Role, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, fmt.Errorf("role key is required")
	}

	role := domain.Role{ID: uuid.NewString(), Key: key}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.cache.Invalidate()
	return &role, nil
}

// CreatePosition provisions a new position.
func (s *PermissionService) CreatePosition(ctx context.Context, input CreateSubjectInput) (*domain.Position, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, fmt.Errorf("position key is required")
	}

	position := domain.Position{ID: uuid.NewString(), Key: key}
	if input.UnitScope != nil {
		trimmed := strings.TrimSpace(*input.UnitScope)
		if trimmed != "" {
			position.UnitScope = &trimmed
		}
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			position.Description = &trimmed
		}
	}

	if err := s.positions.Create(ctx, position); err != nil {
		return nil, fmt.Errorf("create position: %w", err)
	}

	s.cache.Invalidate()
	return &position, nil
}

// ReplaceRoleMappings swaps a role's permission set for the provided
// permission keys. The replacement is delete-then-insert inside one
// transaction; readers never observe a partial set.
func (s *PermissionService) ReplaceRoleMappings(ctx context.Context, roleKey string, permissionKeys []string) error {
	role, err := s.roles.GetByKey(ctx, strings.TrimSpace(roleKey))
	if err != nil {
		return fmt.Errorf("get role: %w", err)
	}

	permissionIDs, err := s.resolvePermissionIDs(ctx, permissionKeys)
	if err != nil {
		return err
	}

	if err := s.roles.ReplaceMappings(ctx, role.ID, permissionIDs); err != nil {
		return fmt.Errorf("replace role mappings: %w", err)
	}

	s.cache.Invalidate()
	return nil
}

// ReplacePositionMappings swaps a position's permission set, mirroring
// ReplaceRoleMappings.
func (s *PermissionService) ReplacePositionMappings(ctx context.Context, positionKey string, permissionKeys []string) error {
	position, err := s.positions.GetByKey(ctx, strings.TrimSpace(positionKey))
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}

	permissionIDs, err := s.resolvePermissionIDs(ctx, permissionKeys)
	if err != nil {
		return err
	}

	if err := s.positions.ReplaceMappings(ctx, position.ID, permissionIDs); err != nil {
		return fmt.Errorf("replace position mappings: %w", err)
	}

	s.cache.Invalidate()
	return nil
}

// UpsertFieldRule creates or replaces the field rule for the given scope.
// Exactly one of RoleKey and PositionKey must be set.
func (s *PermissionService) UpsertFieldRule(ctx context.Context, input FieldRuleInput) (*domain.FieldRule, error) {
	hasRole := input.RoleKey != nil && strings.TrimSpace(*input.RoleKey) != ""
	hasPosition := input.PositionKey != nil && strings.TrimSpace(*input.PositionKey) != ""
	if hasRole == hasPosition {
		return nil, ErrInvalidRuleScope
	}

	if !input.Mode.Valid() {
		return nil, ErrInvalidFieldMode
	}

	fields := make([]string, 0, len(input.Fields))
	seen := make(map[string]struct{}, len(input.Fields))
	for _, field := range input.Fields {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		fields = append(fields, trimmed)
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	permission, err := s.permissions.GetByKey(ctx, strings.TrimSpace(input.PermissionKey))
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}

	rule := domain.FieldRule{
		ID:           uuid.NewString(),
		PermissionID: permission.ID,
		Mode:         input.Mode,
		Fields:       fields,
	}

	if hasRole {
		role, err := s.roles.GetByKey(ctx, strings.TrimSpace(*input.RoleKey))
		if err != nil {
			return nil, fmt.Errorf("get role: %w", err)
		}
		rule.RoleID = &role.ID
	} else {
		position, err := s.positions.GetByKey(ctx, strings.TrimSpace(*input.PositionKey))
		if err != nil {
			return nil, fmt.Errorf("get position: %w", err)
		}
		rule.PositionID = &position.ID
	}

	if err := s.fieldRules.Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("upsert field rule: %w", err)
	}

	s.cache.Invalidate()
	return &rule, nil
}

// DeleteFieldRule removes a field rule by identifier.
func (s *PermissionService) DeleteFieldRule(ctx context.Context, ruleID string) error {
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return fmt.Errorf("rule id is required")
	}

	if err := s.fieldRules.Delete(ctx, ruleID); err != nil {
		return fmt.Errorf("delete field rule: %w", err)
	}

	s.cache.Invalidate()
	return nil
}

func (s *PermissionService) resolvePermissionIDs(ctx context.Context, keys []string) ([]string, error) {
	ids := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}

		permission, err := s.permissions.GetByKey(ctx, trimmed)
		if err != nil {
			return nil, fmt.Errorf("lookup permission %q: %w", trimmed, err)
		}
		ids = append(ids, permission.ID)
	}

	return ids, nil
}
