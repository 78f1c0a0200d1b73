package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Hexmon/e-dossier-sub007/internal/repository"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock
}

func TestRoleRepository_ReplaceMappings(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoleRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM access\.role_permissions WHERE role_id = \$1`).
		WithArgs("role-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO access\.role_permissions \(role_id,permission_id\) VALUES \(\$1,\$2\),\(\$3,\$4\) ON CONFLICT DO NOTHING`).
		WithArgs("role-1", "perm-1", "role-1", "perm-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	if err := repo.ReplaceMappings(context.Background(), "role-1", []string{"perm-1", "perm-2"}); err != nil {
		t.Fatalf("ReplaceMappings returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_ReplaceMappings_ClearsWithoutInsert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoleRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM access\.role_permissions WHERE role_id = \$1`).
		WithArgs("role-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	if err := repo.ReplaceMappings(context.Background(), "role-1", nil); err != nil {
		t.Fatalf("ReplaceMappings returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_ReplaceMappings_RollsBackOnInsertError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoleRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM access\.role_permissions WHERE role_id = \$1`).
		WithArgs("role-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO access\.role_permissions`).
		WithArgs("role-1", "perm-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := repo.ReplaceMappings(context.Background(), "role-1", []string{"perm-1"}); err == nil {
		t.Fatal("expected error when mapping insert fails")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_GetByKey(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoleRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "key", "description"}).
		AddRow("role-1", "INSTRUCTOR", "teaches courses")

	mock.ExpectQuery(`SELECT id, key, description FROM access\.roles WHERE key = \$1`).
		WithArgs("INSTRUCTOR").
		WillReturnRows(rows)

	role, err := repo.GetByKey(context.Background(), "INSTRUCTOR")
	if err != nil {
		t.Fatalf("GetByKey returned error: %v", err)
	}
	if role.ID != "role-1" || role.Key != "INSTRUCTOR" {
		t.Fatalf("unexpected role: %+v", role)
	}
	if role.Description == nil || *role.Description != "teaches courses" {
		t.Fatalf("unexpected description: %v", role.Description)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_GetByKey_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoleRepository(mock)

	mock.ExpectQuery(`SELECT id, key, description FROM access\.roles WHERE key = \$1`).
		WithArgs("MISSING").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByKey(context.Background(), "MISSING"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleRepository_Delete_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRoleRepository(mock)

	mock.ExpectExec(`DELETE FROM access\.roles WHERE id = \$1`).
		WithArgs("role-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "role-404"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
