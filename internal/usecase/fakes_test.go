package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
)

type fakePermissionRepo struct {
	permissions []domain.Permission
	byRole      map[string][]domain.Permission
	byPosition  map[string][]domain.Permission

	listCalls int
	created   []domain.Permission
	deleted   []string
	err       error
}

func (r *fakePermissionRepo) Create(_ context.Context, permission domain.Permission) error {
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.permissions {
		if existing.Key == permission.Key {
			return repository.ErrDuplicate
		}
	}
	r.created = append(r.created, permission)
	r.permissions = append(r.permissions, permission)
	return nil
}

func (r *fakePermissionRepo) Delete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakePermissionRepo) GetByID(_ context.Context, id string) (*domain.Permission, error) {
	for _, permission := range r.permissions {
		if permission.ID == id {
			copy := permission
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePermissionRepo) GetByKey(_ context.Context, key string) (*domain.Permission, error) {
	for _, permission := range r.permissions {
		if permission.Key == key {
			copy := permission
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePermissionRepo) List(_ context.Context, _ port.PermissionFilter) ([]domain.Permission, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.listCalls++
	return r.permissions, nil
}

func (r *fakePermissionRepo) ListByRole(_ context.Context, roleID string) ([]domain.Permission, error) {
	return r.byRole[roleID], nil
}

func (r *fakePermissionRepo) ListByPosition(_ context.Context, positionID string) ([]domain.Permission, error) {
	return r.byPosition[positionID], nil
}

type fakeRoleRepo struct {
	roles    []domain.Role
	replaced map[string][]string
}

func (r *fakeRoleRepo) Create(_ context.Context, role domain.Role) error {
	for _, existing := range r.roles {
		if existing.Key == role.Key {
			return repository.ErrDuplicate
		}
	}
	r.roles = append(r.roles, role)
	return nil
}

func (r *fakeRoleRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call: Delete")
}

func (r *fakeRoleRepo) List(context.Context) ([]domain.Role, error) {
	return r.roles, nil
}

func (r *fakeRoleRepo) GetByKey(_ context.Context, key string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.Key == key {
			copy := role
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRoleRepo) GetByID(_ context.Context, id string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.ID == id {
			copy := role
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRoleRepo) ListByKeys(_ context.Context, keys []string) ([]domain.Role, error) {
	var out []domain.Role
	for _, key := range keys {
		for _, role := range r.roles {
			if role.Key == key {
				out = append(out, role)
			}
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) ReplaceMappings(_ context.Context, roleID string, permissionIDs []string) error {
	if r.replaced == nil {
		r.replaced = make(map[string][]string)
	}
	r.replaced[roleID] = permissionIDs
	return nil
}

type fakePositionRepo struct {
	positions []domain.Position
	replaced  map[string][]string
}

func (r *fakePositionRepo) Create(_ context.Context, position domain.Position) error {
	for _, existing := range r.positions {
		if existing.Key == position.Key {
			return repository.ErrDuplicate
		}
	}
	r.positions = append(r.positions, position)
	return nil
}

func (r *fakePositionRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call: Delete")
}

func (r *fakePositionRepo) List(context.Context) ([]domain.Position, error) {
	return r.positions, nil
}

func (r *fakePositionRepo) GetByKey(_ context.Context, key string) (*domain.Position, error) {
	for _, position := range r.positions {
		if position.Key == key {
			copy := position
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePositionRepo) GetByID(_ context.Context, id string) (*domain.Position, error) {
	for _, position := range r.positions {
		if position.ID == id {
			copy := position
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePositionRepo) ListByKeys(_ context.Context, keys []string) ([]domain.Position, error) {
	var out []domain.Position
	for _, key := range keys {
		for _, position := range r.positions {
			if position.Key == key {
				out = append(out, position)
			}
		}
	}
	return out, nil
}

func (r *fakePositionRepo) ReplaceMappings(_ context.Context, positionID string, permissionIDs []string) error {
	if r.replaced == nil {
		r.replaced = make(map[string][]string)
	}
	r.replaced[positionID] = permissionIDs
	return nil
}

type fakeFieldRuleRepo struct {
	rules    []domain.FieldRule
	upserted []domain.FieldRule
	deleted  []string
}

func (r *fakeFieldRuleRepo) Upsert(_ context.Context, rule domain.FieldRule) error {
	r.upserted = append(r.upserted, rule)
	r.rules = append(r.rules, rule)
	return nil
}

func (r *fakeFieldRuleRepo) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeFieldRuleRepo) ListByPermission(_ context.Context, permissionID string) ([]domain.FieldRule, error) {
	var out []domain.FieldRule
	for _, rule := range r.rules {
		if rule.PermissionID == permissionID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeFieldRuleRepo) ListAll(context.Context) ([]domain.FieldRule, error) {
	return r.rules, nil
}

type fakeAuditRepo struct {
	events    []domain.AuditEvent
	insertErr error
	queryErr  error
	nextSeq   int64

	lastFilter domain.AuditFilter
}

func (r *fakeAuditRepo) Insert(_ context.Context, event domain.AuditEvent) (int64, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.nextSeq++
	event.Seq = r.nextSeq
	r.events = append(r.events, event)
	return r.nextSeq, nil
}

func (r *fakeAuditRepo) Query(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	r.lastFilter = filter

	out := make([]domain.AuditEvent, len(r.events))
	copy(out, r.events)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out, nil
}

type fakePublisher struct {
	published []domain.AuditEvent
	err       error
}

func (p *fakePublisher) PublishAuditEvent(_ context.Context, event domain.AuditEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

// failingCounterStore errors on every operation, standing in for an
// unreachable Redis backend.
type failingCounterStore struct{}

func (failingCounterStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return errors.New("counter store unavailable")
}

func (failingCounterStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return 0, errors.New("counter store unavailable")
}

func (failingCounterStore) RecordAttempt(context.Context, string, time.Time) error {
	return errors.New("counter store unavailable")
}

func (failingCounterStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("counter store unavailable")
}
