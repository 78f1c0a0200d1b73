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

// PositionRepository implements position persistence and position→permission mappings.
type PositionRepository struct {
	db      pgDatabase
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPositionRepository constructs a repository backed by any database that
// satisfies pgDatabase.
func NewPositionRepository(db pgDatabase) *PositionRepository {
	return &PositionRepository{
		db:      db,
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, position domain.Position) error {
	stmt, args, err := r.builder.Insert("access.positions").
		Columns("id", "key", "unit_scope", "description").
		Values(position.ID, position.Key, position.UnitScope, position.Description).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert position sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	return nil
}

// Delete removes a position by ID (cascades to position_permissions and field rules via FK).
func (r *PositionRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("access.positions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete position sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List retrieves all positions sorted by key.
func (r *PositionRepository) List(ctx context.Context) ([]domain.Position, error) {
	stmt, args, err := r.builder.Select("id", "key", "unit_scope", "description").
		From("access.positions").
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list positions sql: %w", err)
	}

	return r.queryPositions(ctx, stmt, args)
}

// GetByKey retrieves a position by its unique key.
func (r *PositionRepository) GetByKey(ctx context.Context, key string) (*domain.Position, error) {
	return r.getBy(ctx, squirrel.Eq{"key": key})
}

// GetByID retrieves a position by its ID.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *PositionRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Position, error) {
	stmt, args, err := r.builder.Select("id", "key", "unit_scope", "description").
		From("access.positions").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select position sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		position    domain.Position
		unitScope   sql.NullString
		description sql.NullString
	)

	if err := row.Scan(&position.ID, &position.Key, &unitScope, &description); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan position: %w", err)
	}

	if unitScope.Valid {
		position.UnitScope = &unitScope.String
	}
	if description.Valid {
		position.Description = &description.String
	}

	return &position, nil
}

// ListByKeys returns the positions matching the provided keys.
func (r *PositionRepository) ListByKeys(ctx context.Context, keys []string) ([]domain.Position, error) {
	if len(keys) == 0 {
		return []domain.Position{}, nil
	}

	stmt, args, err := r.builder.Select("id", "key", "unit_scope", "description").
		From("access.positions").
		Where(squirrel.Eq{"key": keys}).
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build positions by keys sql: %w", err)
	}

	return r.queryPositions(ctx, stmt, args)
}

// ReplaceMappings swaps the position's permission set inside a single
// transaction, mirroring RoleRepository.ReplaceMappings.
func (r *PositionRepository) ReplaceMappings(ctx context.Context, positionID string, permissionIDs []string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace position mappings tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	delStmt, delArgs, err := r.builder.Delete("access.position_permissions").
		Where(squirrel.Eq{"position_id": positionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete position mappings sql: %w", err)
	}

	if _, err := tx.Exec(ctx, delStmt, delArgs...); err != nil {
		return fmt.Errorf("delete position mappings: %w", err)
	}

	if len(permissionIDs) > 0 {
		query := r.builder.Insert("access.position_permissions").
			Columns("position_id", "permission_id")

		for _, permissionID := range permissionIDs {
			query = query.Values(positionID, permissionID)
		}

		insStmt, insArgs, err := query.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build insert position mappings sql: %w", err)
		}

		if _, err := tx.Exec(ctx, insStmt, insArgs...); err != nil {
			return fmt.Errorf("insert position mappings: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace position mappings tx: %w", err)
	}

	return nil
}

func (r *PositionRepository) queryPositions(ctx context.Context, stmt string, args []any) ([]domain.Position, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0)
	for rows.Next() {
		var (
			position    domain.Position
			unitScope   sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(&position.ID, &position.Key, &unitScope, &description); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		if unitScope.Valid {
			scope := unitScope.String
			position.UnitScope = &scope
		}
		if description.Valid {
			desc := description.String
			position.Description = &desc
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}

	return positions, nil
}

var _ port.PositionRepository = (*PositionRepository)(nil)
