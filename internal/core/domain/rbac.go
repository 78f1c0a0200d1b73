package domain

// Permission defines a named capability, e.g. "course:update".
type Permission struct {
	ID          string
	Key         string
	Description *string
}

// Role groups permissions by job function.
type Role struct {
	ID          string
	Key         string
	Description *string
}

// Position groups permissions by organizational appointment, optionally
// scoped to a unit.
type Position struct {
	ID          string
	Key         string
	UnitScope   *string
	Description *string
}

// RolePermission links a role with a permission.
type RolePermission struct {
	RoleID       string
	PermissionID string
}

// PositionPermission links a position with a permission.
type PositionPermission struct {
	PositionID   string
	PermissionID string
}

// FieldMode describes how a field rule restricts visibility of a field.
type FieldMode string

const (
	FieldModeAllow FieldMode = "ALLOW"
	FieldModeDeny  FieldMode = "DENY"
	FieldModeOmit  FieldMode = "OMIT"
	FieldModeMask  FieldMode = "MASK"
)

// Valid reports whether the mode is one of the known field modes.
func (m FieldMode) Valid() bool {
	switch m {
	case FieldModeAllow, FieldModeDeny, FieldModeOmit, FieldModeMask:
		return true
	}
	return false
}

// restrictiveness orders modes from least to most restrictive:
// DENY beats OMIT beats MASK beats ALLOW.
func (m FieldMode) restrictiveness() int {
	switch m {
	case FieldModeDeny:
		return 3
	case FieldModeOmit:
		return 2
	case FieldModeMask:
		return 1
	default:
		return 0
	}
}

// MoreRestrictiveThan reports whether m wins over other when two rules
// name the same field.
func (m FieldMode) MoreRestrictiveThan(other FieldMode) bool {
	return m.restrictiveness() > other.restrictiveness()
}

// FieldRule restricts field visibility for a permission, scoped to exactly
// one role or one position.
type FieldRule struct {
	ID           string
	PermissionID string
	RoleID       *string
	PositionID   *string
	Mode         FieldMode
	Fields       []string
}
