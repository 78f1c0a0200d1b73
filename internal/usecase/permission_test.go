package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
)

type permissionFixture struct {
	permissions *fakePermissionRepo
	roles       *fakeRoleRepo
	positions   *fakePositionRepo
	fieldRules  *fakeFieldRuleRepo
	cache       *PermissionCache
	service     *PermissionService
}

func newPermissionFixture() *permissionFixture {
	permissions := &fakePermissionRepo{
		permissions: []domain.Permission{
			{ID: "perm-1", Key: "course:read"},
			{ID: "perm-2", Key: "course:update"},
		},
	}
	roles := &fakeRoleRepo{roles: []domain.Role{{ID: "role-1", Key: "INSTRUCTOR"}}}
	positions := &fakePositionRepo{positions: []domain.Position{{ID: "pos-1", Key: "COURSE_ADMIN"}}}
	fieldRules := &fakeFieldRuleRepo{}

	cache := NewPermissionCache(roles, positions, permissions, fieldRules, time.Minute)
	return &permissionFixture{
		permissions: permissions,
		roles:       roles,
		positions:   positions,
		fieldRules:  fieldRules,
		cache:       cache,
		service:     NewPermissionService(permissions, roles, positions, fieldRules, cache),
	}
}

func TestCreatePermissionValidatesKey(t *testing.T) {
	fx := newPermissionFixture()

	for _, key := range []string{"", "  ", "courseread"} {
		if _, err := fx.service.CreatePermission(context.Background(), CreatePermissionInput{Key: key}); !errors.Is(err, ErrInvalidPermissionKey) {
			t.Fatalf("key %q: expected ErrInvalidPermissionKey, got %v", key, err)
		}
	}
}

func TestCreatePermissionRejectsDuplicate(t *testing.T) {
	fx := newPermissionFixture()

	if _, err := fx.service.CreatePermission(context.Background(), CreatePermissionInput{Key: "course:read"}); !errors.Is(err, ErrPermissionExists) {
		t.Fatalf("expected ErrPermissionExists, got %v", err)
	}
}

func TestCreatePermissionInvalidatesCache(t *testing.T) {
	fx := newPermissionFixture()
	ctx := context.Background()

	if _, err := fx.cache.Snapshot(ctx); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	listsBefore := fx.permissions.listCalls

	if _, err := fx.service.CreatePermission(ctx, CreatePermissionInput{Key: "cadet:read"}); err != nil {
		t.Fatalf("create permission: %v", err)
	}

	snapshot, err := fx.cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot after mutation: %v", err)
	}
	if fx.permissions.listCalls <= listsBefore {
		t.Fatal("expected cache reload after invalidation")
	}
	if _, ok := snapshot.PermissionIDsByKey["cadet:read"]; !ok {
		t.Fatal("expected new permission visible after reload")
	}
}

func TestReplaceRoleMappingsResolvesKeys(t *testing.T) {
	fx := newPermissionFixture()

	if err := fx.service.ReplaceRoleMappings(context.Background(), "INSTRUCTOR", []string{"course:read", "course:update", "course:read"}); err != nil {
		t.Fatalf("replace role mappings: %v", err)
	}

	got := fx.roles.replaced["role-1"]
	if len(got) != 2 {
		t.Fatalf("expected duplicate keys collapsed to 2 ids, got %v", got)
	}
	if got[0] != "perm-1" || got[1] != "perm-2" {
		t.Fatalf("unexpected permission ids: %v", got)
	}
}

func TestReplaceRoleMappingsUnknownRole(t *testing.T) {
	fx := newPermissionFixture()

	err := fx.service.ReplaceRoleMappings(context.Background(), "REGISTRAR", []string{"course:read"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown role, got %v", err)
	}
}

func TestReplacePositionMappingsResolvesKeys(t *testing.T) {
	fx := newPermissionFixture()

	if err := fx.service.ReplacePositionMappings(context.Background(), "COURSE_ADMIN", []string{"course:update"}); err != nil {
		t.Fatalf("replace position mappings: %v", err)
	}

	got := fx.positions.replaced["pos-1"]
	if len(got) != 1 || got[0] != "perm-2" {
		t.Fatalf("unexpected permission ids: %v", got)
	}
}

func TestUpsertFieldRuleScopeValidation(t *testing.T) {
	fx := newPermissionFixture()
	ctx := context.Background()

	// Neither role nor position.
	_, err := fx.service.UpsertFieldRule(ctx, FieldRuleInput{
		PermissionKey: "course:read",
		Mode:          domain.FieldModeMask,
		Fields:        []string{"ssn"},
	})
	if !errors.Is(err, ErrInvalidRuleScope) {
		t.Fatalf("expected ErrInvalidRuleScope with no scope, got %v", err)
	}

	// Both role and position.
	_, err = fx.service.UpsertFieldRule(ctx, FieldRuleInput{
		PermissionKey: "course:read",
		RoleKey:       strPtr("INSTRUCTOR"),
		PositionKey:   strPtr("COURSE_ADMIN"),
		Mode:          domain.FieldModeMask,
		Fields:        []string{"ssn"},
	})
	if !errors.Is(err, ErrInvalidRuleScope) {
		t.Fatalf("expected ErrInvalidRuleScope with both scopes, got %v", err)
	}
}

func TestUpsertFieldRuleValidatesModeAndFields(t *testing.T) {
	fx := newPermissionFixture()
	ctx := context.Background()

	_, err := fx.service.UpsertFieldRule(ctx, FieldRuleInput{
		PermissionKey: "course:read",
		RoleKey:       strPtr("INSTRUCTOR"),
		Mode:          domain.FieldMode("HIDE"),
		Fields:        []string{"ssn"},
	})
	if !errors.Is(err, ErrInvalidFieldMode) {
		t.Fatalf("expected ErrInvalidFieldMode, got %v", err)
	}

	_, err = fx.service.UpsertFieldRule(ctx, FieldRuleInput{
		PermissionKey: "course:read",
		RoleKey:       strPtr("INSTRUCTOR"),
		Mode:          domain.FieldModeMask,
		Fields:        []string{"  ", ""},
	})
	if !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}

func TestUpsertFieldRuleDedupesFields(t *testing.T) {
	fx := newPermissionFixture()

	rule, err := fx.service.UpsertFieldRule(context.Background(), FieldRuleInput{
		PermissionKey: "course:read",
		RoleKey:       strPtr("INSTRUCTOR"),
		Mode:          domain.FieldModeOmit,
		Fields:        []string{"ssn", " ssn ", "dob"},
	})
	if err != nil {
		t.Fatalf("upsert field rule: %v", err)
	}

	if len(rule.Fields) != 2 {
		t.Fatalf("expected deduped fields, got %v", rule.Fields)
	}
	if rule.RoleID == nil || *rule.RoleID != "role-1" {
		t.Fatalf("expected rule scoped to role-1, got %+v", rule.RoleID)
	}
	if rule.PositionID != nil {
		t.Fatal("position scope must stay empty for role-scoped rule")
	}
}
