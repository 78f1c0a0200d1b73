package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

var (
	// ErrUnknownAction indicates the action has no permission mapping. This
	// is a deployment/config bug, not a deny: callers map it to a 400-class
	// outcome, never 403.
	ErrUnknownAction = errors.New("no permission mapping for action")
)

const reasonPermissionMissing = "permission_missing"

// ActionPermissions maps every action onto the permission key it requires.
// The table is static configuration loaded at startup.
type ActionPermissions map[domain.Action]string

// DefaultActionPermissions returns the built-in action→permission table.
func DefaultActionPermissions() ActionPermissions {
	return ActionPermissions{
		domain.ActionCourseRead:    "course:read",
		domain.ActionCourseCreate:  "course:create",
		domain.ActionCourseUpdate:  "course:update",
		domain.ActionCourseDelete:  "course:delete",
		domain.ActionCadetRead:     "cadet:read",
		domain.ActionCadetCreate:   "cadet:create",
		domain.ActionCadetUpdate:   "cadet:update",
		domain.ActionCadetDelete:   "cadet:delete",
		domain.ActionTrainingRead:  "training:read",
		domain.ActionTrainingWrite: "training:write",
		domain.ActionRoleManage:    "role:manage",
		domain.ActionAuditRead:     "audit:read",
	}
}

// Validate checks that every known action has a mapping, so a missing entry
// is caught at startup rather than discovered at request time.
func (m ActionPermissions) Validate() error {
	for _, action := range domain.Actions() {
		if _, ok := m[action]; !ok {
			return fmt.Errorf("action %q: %w", action, ErrUnknownAction)
		}
	}
	return nil
}

// AuthorizeService evaluates principals against actions. It is a pure
// function of its inputs and the permission snapshot it reads; EngineID
// identifies the evaluating instance for audit correlation.
type AuthorizeService struct {
	cache    *PermissionCache
	actions  ActionPermissions
	engineID string
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthorizeService constructs the authorization engine.
func NewAuthorizeService(cache *PermissionCache, actions ActionPermissions, logger *zap.Logger) *AuthorizeService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthorizeService{
		cache:    cache,
		actions:  actions,
		engineID: fmt.Sprintf("authz-%s", uuid.NewString()[:8]),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *AuthorizeService) WithClock(now func() time.Time) *AuthorizeService {
	if now != nil {
		s.now = now
	}
	return s
}

// EngineID returns the identity of this evaluating engine instance.
func (s *AuthorizeService) EngineID() string {
	return s.engineID
}

// Authorize decides whether the principal may perform the action. TraceID
// ties the decision to the request for audit correlation; an empty trace id
// gets a fresh one.
func (s *AuthorizeService) Authorize(ctx context.Context, principal domain.Principal, action domain.Action, traceID string) (domain.Decision, error) {
	if traceID == "" {
		traceID = uuid.NewString()
	}

	decision := domain.Decision{
		TraceID:     traceID,
		EngineID:    s.engineID,
		EvaluatedAt: s.now().UTC(),
	}

	permissionKey, ok := s.actions[action]
	if !ok {
		return decision, fmt.Errorf("action %q: %w", action, ErrUnknownAction)
	}

	snapshot, err := s.cache.Snapshot(ctx)
	if err != nil {
		return decision, fmt.Errorf("load permission snapshot: %w", err)
	}

	if !s.hasPermission(snapshot, principal, permissionKey) {
		decision.Allow = false
		decision.Reasons = []domain.Reason{{Code: domain.ReasonCodeDeny, Message: reasonPermissionMissing}}

		s.logger.Debug("authorization denied",
			zap.String("trace_id", traceID),
			zap.String("principal_id", principal.ID),
			zap.String("action", string(action)),
			zap.String("permission", permissionKey),
		)

		return decision, nil
	}

	decision.Allow = true
	decision.Reasons = []domain.Reason{{Code: domain.ReasonCodeAllow, Message: fmt.Sprintf("permission %s granted", permissionKey)}}
	decision.Obligations = s.fieldObligations(snapshot, principal, permissionKey)

	return decision, nil
}

// hasPermission computes membership of the required permission in the
// principal's effective set: union over roles, positions, and attribute grants.
func (s *AuthorizeService) hasPermission(snapshot *PermissionSnapshot, principal domain.Principal, permissionKey string) bool {
	for _, granted := range principal.AttributePermissions() {
		if granted == permissionKey {
			return true
		}
	}

	for _, roleKey := range principal.Roles {
		if snapshot.RoleHasPermission(roleKey, permissionKey) {
			return true
		}
	}

	for _, positionKey := range principal.Positions {
		if snapshot.PositionHasPermission(positionKey, permissionKey) {
			return true
		}
	}

	return false
}

// fieldObligations folds every field rule matching the permission and the
// principal's roles/positions into per-field obligations. When rules
// conflict on a field the most restrictive mode wins: DENY beats OMIT beats
// MASK beats ALLOW. DENY surfaces to callers as OMIT; ALLOW and unmentioned
// fields produce no obligation.
func (s *AuthorizeService) fieldObligations(snapshot *PermissionSnapshot, principal domain.Principal, permissionKey string) []domain.Obligation {
	permissionID, ok := snapshot.PermissionIDsByKey[permissionKey]
	if !ok {
		return nil
	}

	roleIDs := make(map[string]struct{}, len(principal.Roles))
	for _, roleKey := range principal.Roles {
		if id, ok := snapshot.RoleIDsByKey[roleKey]; ok {
			roleIDs[id] = struct{}{}
		}
	}

	positionIDs := make(map[string]struct{}, len(principal.Positions))
	for _, positionKey := range principal.Positions {
		if id, ok := snapshot.PositionIDsByKey[positionKey]; ok {
			positionIDs[id] = struct{}{}
		}
	}

	effective := make(map[string]domain.FieldMode)
	for _, rule := range snapshot.FieldRules {
		if rule.PermissionID != permissionID {
			continue
		}
		if !ruleApplies(rule, roleIDs, positionIDs) {
			continue
		}

		for _, field := range rule.Fields {
			current, seen := effective[field]
			if !seen || rule.Mode.MoreRestrictiveThan(current) {
				effective[field] = rule.Mode
			}
		}
	}

	obligations := make([]domain.Obligation, 0, len(effective))
	for field, mode := range effective {
		switch mode {
		case domain.FieldModeAllow:
			continue
		case domain.FieldModeDeny:
			mode = domain.FieldModeOmit
		}
		obligations = append(obligations, domain.Obligation{Field: field, Mode: mode})
	}

	sort.Slice(obligations, func(i, j int) bool { return obligations[i].Field < obligations[j].Field })

	return obligations
}

func ruleApplies(rule domain.FieldRule, roleIDs, positionIDs map[string]struct{}) bool {
	if rule.RoleID != nil {
		_, ok := roleIDs[*rule.RoleID]
		return ok
	}
	if rule.PositionID != nil {
		_, ok := positionIDs[*rule.PositionID]
		return ok
	}
	return false
}
