package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
)

// RoleRepository implements role persistence and role→permission mappings.
type RoleRepository struct {
	db      pgDatabase
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a repository backed by any database that
// satisfies pgDatabase.
func NewRoleRepository(db pgDatabase) *RoleRepository {
	return &RoleRepository{
		db:      db,
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		db:      r.db,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Insert("access.roles").
		Columns("id", "key", "description").
		Values(role.ID, role.Key, role.Description).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}

	return nil
}

// Delete removes a role by ID (cascades to role_permissions and field rules via FK).
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("access.roles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List retrieves all roles sorted by key.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "key", "description").
		From("access.roles").
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	return r.queryRoles(ctx, stmt, args)
}

// GetByKey retrieves a role by its unique key.
func (r *RoleRepository) GetByKey(ctx context.Context, key string) (*domain.Role, error) {
	return r.getBy(ctx, squirrel.Eq{"key": key})
}

// GetByID retrieves a role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *RoleRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "key", "description").
		From("access.roles").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		role        domain.Role
		description sql.NullString
	)

	if err := row.Scan(&role.ID, &role.Key, &description); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	if description.Valid {
		role.Description = &description.String
	}

	return &role, nil
}

// ListByKeys returns the roles matching the provided keys.
func (r *RoleRepository) ListByKeys(ctx context.Context, keys []string) ([]domain.Role, error) {
	if len(keys) == 0 {
		return []domain.Role{}, nil
	}

	stmt, args, err := r.builder.Select("id", "key", "description").
		From("access.roles").
		Where(squirrel.Eq{"key": keys}).
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build roles by keys sql: %w", err)
	}

	return r.queryRoles(ctx, stmt, args)
}

// ReplaceMappings swaps the role's permission set inside a single
// transaction so no reader observes a half-replaced set. Last writer wins
// when concurrent callers race on the same role.
func (r *RoleRepository) ReplaceMappings(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace role mappings tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	delStmt, delArgs, err := r.builder.Delete("access.role_permissions").
		Where(squirrel.Eq{"role_id": roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role mappings sql: %w", err)
	}

	if _, err := tx.Exec(ctx, delStmt, delArgs...); err != nil {
		return fmt.Errorf("delete role mappings: %w", err)
	}

	if len(permissionIDs) > 0 {
		query := r.builder.Insert("access.role_permissions").
			Columns("role_id", "permission_id")

		for _, permissionID := range permissionIDs {
			query = query.Values(roleID, permissionID)
		}

		insStmt, insArgs, err := query.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build insert role mappings sql: %w", err)
		}

		if _, err := tx.Exec(ctx, insStmt, insArgs...); err != nil {
			return fmt.Errorf("insert role mappings: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace role mappings tx: %w", err)
	}

	return nil
}

func (r *RoleRepository) queryRoles(ctx context.Context, stmt string, args []any) ([]domain.Role, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var (
			role        domain.Role
			description sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Key, &description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		if description.Valid {
			desc := description.String
			role.Description = &desc
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
