package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

func strPtr(s string) *string {
	return &s
}

func newEngineFixture(t *testing.T, rules []domain.FieldRule) *AuthorizeService {
	t.Helper()

	permissions := &fakePermissionRepo{
		permissions: []domain.Permission{
			{ID: "perm-course-read", Key: "course:read"},
			{ID: "perm-cadet-read", Key: "cadet:read"},
		},
		byRole: map[string][]domain.Permission{
			"role-instructor": {{ID: "perm-course-read", Key: "course:read"}},
		},
		byPosition: map[string][]domain.Permission{
			"pos-course-admin": {{ID: "perm-course-read", Key: "course:read"}},
		},
	}
	roles := &fakeRoleRepo{roles: []domain.Role{{ID: "role-instructor", Key: "INSTRUCTOR"}}}
	positions := &fakePositionRepo{positions: []domain.Position{{ID: "pos-course-admin", Key: "COURSE_ADMIN"}}}
	fieldRules := &fakeFieldRuleRepo{rules: rules}

	cache := NewPermissionCache(roles, positions, permissions, fieldRules, time.Minute)
	return NewAuthorizeService(cache, DefaultActionPermissions(), zaptest.NewLogger(t))
}

func TestAuthorizeUnknownAction(t *testing.T) {
	svc := newEngineFixture(t, nil)

	_, err := svc.Authorize(context.Background(), domain.Principal{ID: "u1", Type: domain.PrincipalUser}, domain.Action("course.archive"), "")
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestAuthorizeDeniesWhenPermissionMissing(t *testing.T) {
	svc := newEngineFixture(t, nil)

	principal := domain.Principal{ID: "u1", Type: domain.PrincipalUser, Roles: []string{"INSTRUCTOR"}}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCadetRead, "trace-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if decision.Allow {
		t.Fatal("expected deny for missing permission")
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0].Code != domain.ReasonCodeDeny {
		t.Fatalf("unexpected reasons: %+v", decision.Reasons)
	}
	if decision.Reasons[0].Message != "permission_missing" {
		t.Fatalf("unexpected reason message: %q", decision.Reasons[0].Message)
	}
	if decision.TraceID != "trace-1" {
		t.Fatalf("expected trace id carried through, got %q", decision.TraceID)
	}
}

func TestAuthorizeAllowsViaRole(t *testing.T) {
	svc := newEngineFixture(t, nil)

	principal := domain.Principal{ID: "u1", Type: domain.PrincipalUser, Roles: []string{"INSTRUCTOR"}}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if !decision.Allow {
		t.Fatalf("expected allow, got reasons %+v", decision.Reasons)
	}
	if decision.TraceID == "" {
		t.Fatal("expected generated trace id")
	}
	if decision.EngineID != svc.EngineID() {
		t.Fatalf("expected engine id %q, got %q", svc.EngineID(), decision.EngineID)
	}
}

func TestAuthorizeAllowsViaPosition(t *testing.T) {
	svc := newEngineFixture(t, nil)

	principal := domain.Principal{ID: "u2", Type: domain.PrincipalUser, Positions: []string{"COURSE_ADMIN"}}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow via position, got reasons %+v", decision.Reasons)
	}
}

func TestAuthorizeAllowsViaAttributeGrant(t *testing.T) {
	svc := newEngineFixture(t, nil)

	principal := domain.Principal{
		ID:         "svc-1",
		Type:       domain.PrincipalSystem,
		Attributes: map[string]any{"permissions": []string{"course:read"}},
	}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow via attribute grant, got reasons %+v", decision.Reasons)
	}
}

func TestAuthorizeAnonymousDenied(t *testing.T) {
	svc := newEngineFixture(t, nil)

	decision, err := svc.Authorize(context.Background(), domain.Anonymous(), domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if decision.Allow {
		t.Fatal("expected deny for anonymous principal")
	}
}

func TestFieldRulePrecedenceMostRestrictiveWins(t *testing.T) {
	rules := []domain.FieldRule{
		// Role-scoped MASK vs position-scoped OMIT on the same field.
		{ID: "r1", PermissionID: "perm-course-read", RoleID: strPtr("role-instructor"), Mode: domain.FieldModeMask, Fields: []string{"ssn", "medical_notes"}},
		{ID: "r2", PermissionID: "perm-course-read", PositionID: strPtr("pos-course-admin"), Mode: domain.FieldModeOmit, Fields: []string{"ssn"}},
		// ALLOW alone never produces an obligation.
		{ID: "r3", PermissionID: "perm-course-read", RoleID: strPtr("role-instructor"), Mode: domain.FieldModeAllow, Fields: []string{"grade"}},
	}
	svc := newEngineFixture(t, rules)

	principal := domain.Principal{
		ID:        "u1",
		Type:      domain.PrincipalUser,
		Roles:     []string{"INSTRUCTOR"},
		Positions: []string{"COURSE_ADMIN"},
	}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow, got reasons %+v", decision.Reasons)
	}

	want := []domain.Obligation{
		{Field: "medical_notes", Mode: domain.FieldModeMask},
		{Field: "ssn", Mode: domain.FieldModeOmit},
	}
	if len(decision.Obligations) != len(want) {
		t.Fatalf("expected %d obligations, got %+v", len(want), decision.Obligations)
	}
	for i, ob := range want {
		if decision.Obligations[i] != ob {
			t.Fatalf("obligation %d: expected %+v, got %+v", i, ob, decision.Obligations[i])
		}
	}
}

func TestFieldRuleDenyMaterializesAsOmit(t *testing.T) {
	rules := []domain.FieldRule{
		{ID: "r1", PermissionID: "perm-course-read", RoleID: strPtr("role-instructor"), Mode: domain.FieldModeDeny, Fields: []string{"ssn"}},
	}
	svc := newEngineFixture(t, rules)

	principal := domain.Principal{ID: "u1", Type: domain.PrincipalUser, Roles: []string{"INSTRUCTOR"}}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if len(decision.Obligations) != 1 {
		t.Fatalf("expected one obligation, got %+v", decision.Obligations)
	}
	if decision.Obligations[0].Mode != domain.FieldModeOmit {
		t.Fatalf("expected DENY to surface as OMIT, got %s", decision.Obligations[0].Mode)
	}
}

func TestFieldRulesForOtherSubjectsIgnored(t *testing.T) {
	rules := []domain.FieldRule{
		{ID: "r1", PermissionID: "perm-course-read", PositionID: strPtr("pos-course-admin"), Mode: domain.FieldModeOmit, Fields: []string{"ssn"}},
	}
	svc := newEngineFixture(t, rules)

	// Holds the permission through the role but not the scoped position.
	principal := domain.Principal{ID: "u1", Type: domain.PrincipalUser, Roles: []string{"INSTRUCTOR"}}
	decision, err := svc.Authorize(context.Background(), principal, domain.ActionCourseRead, "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if len(decision.Obligations) != 0 {
		t.Fatalf("expected no obligations, got %+v", decision.Obligations)
	}
}

func TestActionPermissionsValidate(t *testing.T) {
	if err := DefaultActionPermissions().Validate(); err != nil {
		t.Fatalf("default table should validate: %v", err)
	}

	incomplete := ActionPermissions{domain.ActionCourseRead: "course:read"}
	if err := incomplete.Validate(); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction for incomplete table, got %v", err)
	}
}
