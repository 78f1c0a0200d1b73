package domain

// PrincipalType classifies the actor attached to a request.
type PrincipalType string

const (
	PrincipalUser      PrincipalType = "user"
	PrincipalSystem    PrincipalType = "system"
	PrincipalAnonymous PrincipalType = "anonymous"
)

// Principal is the resolved identity attached to a request.
type Principal struct {
	ID         string
	Type       PrincipalType
	TenantID   string
	Roles      []string
	Positions  []string
	Attributes map[string]any
}

// attributePermissionsKey holds permission keys embedded directly in the
// principal's attribute bag (service-account and fast-path grants).
const attributePermissionsKey = "permissions"

// AttributePermissions returns permission keys granted directly on the
// principal, bypassing role and position lookups.
func (p Principal) AttributePermissions() []string {
	raw, ok := p.Attributes[attributePermissionsKey]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
		return keys
	}

	return nil
}

// Anonymous returns the principal used when no credentials are presented.
func Anonymous() Principal {
	return Principal{Type: PrincipalAnonymous}
}
