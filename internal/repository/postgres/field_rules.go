package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
)

// FieldRuleRepository implements field-rule persistence over PostgreSQL.
// Partial unique indexes on (permission_id, role_id) and
// (permission_id, position_id) back the one-rule-per-pair invariant.
type FieldRuleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewFieldRuleRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewFieldRuleRepository(exec pgExecutor) *FieldRuleRepository {
	return &FieldRuleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts the rule or replaces the existing rule for the same scope pair.
func (r *FieldRuleRepository) Upsert(ctx context.Context, rule domain.FieldRule) error {
	conflictTarget := "(permission_id, role_id) WHERE role_id IS NOT NULL"
	if rule.PositionID != nil {
		conflictTarget = "(permission_id, position_id) WHERE position_id IS NOT NULL"
	}

	stmt, args, err := r.builder.Insert("access.field_rules").
		Columns("id", "permission_id", "role_id", "position_id", "mode", "fields").
		Values(rule.ID, rule.PermissionID, rule.RoleID, rule.PositionID, string(rule.Mode), rule.Fields).
		Suffix(fmt.Sprintf("ON CONFLICT %s DO UPDATE SET mode = EXCLUDED.mode, fields = EXCLUDED.fields", conflictTarget)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert field rule sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert field rule: %w", err)
	}

	return nil
}

// Delete removes a field rule by ID.
func (r *FieldRuleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("access.field_rules").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete field rule sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete field rule: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByPermission returns every field rule configured for the permission.
func (r *FieldRuleRepository) ListByPermission(ctx context.Context, permissionID string) ([]domain.FieldRule, error) {
	stmt, args, err := r.builder.Select("id", "permission_id", "role_id", "position_id", "mode", "fields").
		From("access.field_rules").
		Where(squirrel.Eq{"permission_id": permissionID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build field rules by permission sql: %w", err)
	}

	return r.queryRules(ctx, stmt, args)
}

// ListAll returns every field rule. Used to build permission snapshots.
func (r *FieldRuleRepository) ListAll(ctx context.Context) ([]domain.FieldRule, error) {
	stmt, args, err := r.builder.Select("id", "permission_id", "role_id", "position_id", "mode", "fields").
		From("access.field_rules").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list field rules sql: %w", err)
	}

	return r.queryRules(ctx, stmt, args)
}

func (r *FieldRuleRepository) queryRules(ctx context.Context, stmt string, args []any) ([]domain.FieldRule, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query field rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.FieldRule, 0)
	for rows.Next() {
		var (
			rule       domain.FieldRule
			roleID     sql.NullString
			positionID sql.NullString
			mode       string
		)
		if err := rows.Scan(&rule.ID, &rule.PermissionID, &roleID, &positionID, &mode, &rule.Fields); err != nil {
			return nil, fmt.Errorf("scan field rule: %w", err)
		}
		if roleID.Valid {
			id := roleID.String
			rule.RoleID = &id
		}
		if positionID.Valid {
			id := positionID.String
			rule.PositionID = &id
		}
		rule.Mode = domain.FieldMode(mode)
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field rules: %w", err)
	}

	return rules, nil
}

var _ port.FieldRuleRepository = (*FieldRuleRepository)(nil)
