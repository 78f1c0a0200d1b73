package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// PermissionSnapshot is a point-in-time read of the permission model:
// role and position keys resolved to their granted permission keys, plus
// every configured field rule. The engine evaluates against one snapshot
// so a request never sees a half-replaced mapping set.
type PermissionSnapshot struct {
	RolePermissions     map[string]map[string]struct{}
	PositionPermissions map[string]map[string]struct{}
	RoleIDsByKey        map[string]string
	PositionIDsByKey    map[string]string
	PermissionIDsByKey  map[string]string
	FieldRules          []domain.FieldRule
	LoadedAt            time.Time
}

// RoleHasPermission reports whether the role key grants the permission key.
func (s *PermissionSnapshot) RoleHasPermission(roleKey, permissionKey string) bool {
	perms, ok := s.RolePermissions[roleKey]
	if !ok {
		return false
	}
	_, ok = perms[permissionKey]
	return ok
}

// PositionHasPermission reports whether the position key grants the permission key.
func (s *PermissionSnapshot) PositionHasPermission(positionKey, permissionKey string) bool {
	perms, ok := s.PositionPermissions[positionKey]
	if !ok {
		return false
	}
	_, ok = perms[permissionKey]
	return ok
}

// PermissionCache serves permission snapshots with bounded staleness. It is
// an explicit, injectable object: mutation paths call Invalidate instead of
// relying on ambient globals or process restarts. A revoked permission may
// still be honored for up to the configured TTL, an accepted tradeoff.
type PermissionCache struct {
	roles       port.RoleRepository
	positions   port.PositionRepository
	permissions port.PermissionRepository
	fieldRules  port.FieldRuleRepository

	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	snapshot *PermissionSnapshot
}

// NewPermissionCache constructs a cache over the permission model repositories.
func NewPermissionCache(
	roles port.RoleRepository,
	positions port.PositionRepository,
	permissions port.PermissionRepository,
	fieldRules port.FieldRuleRepository,
	ttl time.Duration,
) *PermissionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &PermissionCache{
		roles:       roles,
		positions:   positions,
		permissions: permissions,
		fieldRules:  fieldRules,
		ttl:         ttl,
		now:         time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (c *PermissionCache) WithClock(now func() time.Time) *PermissionCache {
	if now != nil {
		c.now = now
	}
	return c
}

// Snapshot returns the cached snapshot, reloading it when stale or absent.
func (c *PermissionCache) Snapshot(ctx context.Context) (*PermissionSnapshot, error) {
	c.mu.RLock()
	current := c.snapshot
	c.mu.RUnlock()

	if current != nil && c.now().Sub(current.LoadedAt) < c.ttl {
		return current, nil
	}

	return c.reload(ctx)
}

// Invalidate drops the cached snapshot. Permission model mutations call
// this so the next evaluation reads fresh state.
func (c *PermissionCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

func (c *PermissionCache) reload(ctx context.Context) (*PermissionSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have reloaded while we waited on the lock.
	if c.snapshot != nil && c.now().Sub(c.snapshot.LoadedAt) < c.ttl {
		return c.snapshot, nil
	}

	snapshot := &PermissionSnapshot{
		RolePermissions:     make(map[string]map[string]struct{}),
		PositionPermissions: make(map[string]map[string]struct{}),
		RoleIDsByKey:        make(map[string]string),
		PositionIDsByKey:    make(map[string]string),
		PermissionIDsByKey:  make(map[string]string),
		LoadedAt:            c.now(),
	}

	allPermissions, err := c.permissions.List(ctx, port.PermissionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	for _, permission := range allPermissions {
		snapshot.PermissionIDsByKey[permission.Key] = permission.ID
	}

	roles, err := c.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	for _, role := range roles {
		granted, err := c.permissions.ListByRole(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("list permissions for role %s: %w", role.Key, err)
		}

		keys := make(map[string]struct{}, len(granted))
		for _, permission := range granted {
			keys[permission.Key] = struct{}{}
		}
		snapshot.RolePermissions[role.Key] = keys
		snapshot.RoleIDsByKey[role.Key] = role.ID
	}

	positions, err := c.positions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	for _, position := range positions {
		granted, err := c.permissions.ListByPosition(ctx, position.ID)
		if err != nil {
			return nil, fmt.Errorf("list permissions for position %s: %w", position.Key, err)
		}

		keys := make(map[string]struct{}, len(granted))
		for _, permission := range granted {
			keys[permission.Key] = struct{}{}
		}
		snapshot.PositionPermissions[position.Key] = keys
		snapshot.PositionIDsByKey[position.Key] = position.ID
	}

	rules, err := c.fieldRules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list field rules: %w", err)
	}
	snapshot.FieldRules = rules

	c.snapshot = snapshot
	return snapshot, nil
}
