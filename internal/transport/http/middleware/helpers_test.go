package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

type staticResolver struct {
	principals map[string]domain.Principal
}

func (r *staticResolver) Resolve(_ context.Context, credentials string) (domain.Principal, error) {
	if credentials == "" {
		return domain.Principal{}, port.ErrNoCredentials
	}
	principal, ok := r.principals[credentials]
	if !ok {
		return domain.Principal{}, port.ErrInvalidCredentials
	}
	return principal, nil
}

type memAuditRepo struct {
	events  []domain.AuditEvent
	nextSeq int64
}

func (r *memAuditRepo) Insert(_ context.Context, event domain.AuditEvent) (int64, error) {
	r.nextSeq++
	event.Seq = r.nextSeq
	r.events = append(r.events, event)
	return r.nextSeq, nil
}

func (r *memAuditRepo) Query(_ context.Context, _ domain.AuditFilter) ([]domain.AuditEvent, error) {
	out := make([]domain.AuditEvent, len(r.events))
	copy(out, r.events)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out, nil
}

type memPermissionRepo struct {
	permissions []domain.Permission
	byRole      map[string][]domain.Permission
}

func (r *memPermissionRepo) Create(context.Context, domain.Permission) error {
	return errors.New("unexpected call: Create")
}

func (r *memPermissionRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call: Delete")
}

func (r *memPermissionRepo) GetByID(context.Context, string) (*domain.Permission, error) {
	return nil, repository.ErrNotFound
}

func (r *memPermissionRepo) GetByKey(_ context.Context, key string) (*domain.Permission, error) {
	for _, permission := range r.permissions {
		if permission.Key == key {
			copy := permission
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPermissionRepo) List(context.Context, port.PermissionFilter) ([]domain.Permission, error) {
	return r.permissions, nil
}

func (r *memPermissionRepo) ListByRole(_ context.Context, roleID string) ([]domain.Permission, error) {
	return r.byRole[roleID], nil
}

func (r *memPermissionRepo) ListByPosition(context.Context, string) ([]domain.Permission, error) {
	return nil, nil
}

type memRoleRepo struct {
	roles []domain.Role
}

func (r *memRoleRepo) Create(context.Context, domain.Role) error {
	return errors.New("unexpected call: Create")
}

func (r *memRoleRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call: Delete")
}

func (r *memRoleRepo) List(context.Context) ([]domain.Role, error) {
	return r.roles, nil
}

func (r *memRoleRepo) GetByKey(_ context.Context, key string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.Key == key {
			copy := role
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRoleRepo) GetByID(context.Context, string) (*domain.Role, error) {
	return nil, repository.ErrNotFound
}

func (r *memRoleRepo) ListByKeys(context.Context, []string) ([]domain.Role, error) {
	return r.roles, nil
}

func (r *memRoleRepo) ReplaceMappings(context.Context, string, []string) error {
	return errors.New("unexpected call: ReplaceMappings")
}

type memPositionRepo struct{}

func (memPositionRepo) Create(context.Context, domain.Position) error {
	return errors.New("unexpected call: Create")
}

func (memPositionRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call: Delete")
}

func (memPositionRepo) List(context.Context) ([]domain.Position, error) {
	return nil, nil
}

func (memPositionRepo) GetByKey(context.Context, string) (*domain.Position, error) {
	return nil, repository.ErrNotFound
}

func (memPositionRepo) GetByID(context.Context, string) (*domain.Position, error) {
	return nil, repository.ErrNotFound
}

func (memPositionRepo) ListByKeys(context.Context, []string) ([]domain.Position, error) {
	return nil, nil
}

func (memPositionRepo) ReplaceMappings(context.Context, string, []string) error {
	return errors.New("unexpected call: ReplaceMappings")
}

type memFieldRuleRepo struct {
	rules []domain.FieldRule
}

func (r *memFieldRuleRepo) Upsert(context.Context, domain.FieldRule) error {
	return errors.New("unexpected call: Upsert")
}

func (r *memFieldRuleRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call: Delete")
}

func (r *memFieldRuleRepo) ListByPermission(context.Context, string) ([]domain.FieldRule, error) {
	return r.rules, nil
}

func (r *memFieldRuleRepo) ListAll(context.Context) ([]domain.FieldRule, error) {
	return r.rules, nil
}

type authzFixture struct {
	authorizer *Authorizer
	audit      *memAuditRepo
}

// newAuthzFixture wires an Authorizer over in-memory state: the "reader"
// token holds INSTRUCTOR with course:read, the "nobody" token holds no
// grants at all.
func newAuthzFixture(t *testing.T) *authzFixture {
	t.Helper()

	resolver := &staticResolver{principals: map[string]domain.Principal{
		"reader": {ID: "u-reader", Type: domain.PrincipalUser, Roles: []string{"INSTRUCTOR"}},
		"nobody": {ID: "u-nobody", Type: domain.PrincipalUser},
	}}

	permissions := &memPermissionRepo{
		permissions: []domain.Permission{{ID: "perm-1", Key: "course:read"}},
		byRole: map[string][]domain.Permission{
			"role-1": {{ID: "perm-1", Key: "course:read"}},
		},
	}
	roles := &memRoleRepo{roles: []domain.Role{{ID: "role-1", Key: "INSTRUCTOR"}}}

	cache := usecase.NewPermissionCache(roles, memPositionRepo{}, permissions, &memFieldRuleRepo{}, time.Minute)
	log := zaptest.NewLogger(t)
	authorizeService := usecase.NewAuthorizeService(cache, usecase.DefaultActionPermissions(), log)

	auditRepo := &memAuditRepo{}
	auditService := usecase.NewAuditService(auditRepo, nil, log)

	return &authzFixture{
		authorizer: NewAuthorizer(resolver, authorizeService, auditService, log),
		audit:      auditRepo,
	}
}

func performRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnrichContext())
	r.Use(RequestID())
	return r
}
