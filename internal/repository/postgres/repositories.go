package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Permissions *PermissionRepository
	Roles       *RoleRepository
	Positions   *PositionRepository
	FieldRules  *FieldRuleRepository
	Audit       *AuditRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Permissions: NewPermissionRepository(pool),
		Roles:       NewRoleRepository(pool),
		Positions:   NewPositionRepository(pool),
		FieldRules:  NewFieldRuleRepository(pool),
		Audit:       NewAuditRepository(pool),
	}
}
