package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"authcore.org/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", sqlmock.AnyArg(), true).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Create(context.Background(), &auth.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		IsActive:     true,
	})
	if !errors.Is(err, auth.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByUsername(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	login := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_active", "last_login", "created_at", "updated_at"}).
		AddRow("u1", "alice", "alice@example.com", "hash", true, login, now, now)
	mock.ExpectQuery("select (.+) from users where username").
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := store.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if user.ID != "u1" || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(login) {
		t.Fatalf("last login not mapped: %v", user.LastLogin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByUsernameNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select (.+) from users where username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "is_active", "last_login", "created_at", "updated_at"}))

	_, err := store.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordLoginMissingUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update users set last_login").
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RecordLogin(context.Background(), "ghost", time.Now())
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRoleDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into user_roles").
		WithArgs("u1", "r1", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.AssignRole(context.Background(), auth.UserRole{UserID: "u1", RoleID: "r1"})
	if !errors.Is(err, auth.ErrDuplicateAssignment) {
		t.Fatalf("expected ErrDuplicateAssignment, got %v", err)
	}
}

func TestAssignRoleMissingUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into user_roles").
		WithArgs("ghost", "r1", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	_, err := store.AssignRole(context.Background(), auth.UserRole{UserID: "ghost", RoleID: "r1"})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRolesForUserFiltersInactive(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "is_active", "created_at", "updated_at"}).
		AddRow("r1", "admin", "", true, now, now)
	mock.ExpectQuery(`join user_roles ur on ur.role_id = r.id\s+where ur.user_id = \$1 and r.is_active`).
		WithArgs("u1").
		WillReturnRows(rows)

	roles, err := store.RolesForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RolesForUser: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != "admin" {
		t.Fatalf("unexpected roles: %+v", roles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateRoleNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update roles set is_active = false").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeactivateRole(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	exp := time.Now().Add(24 * time.Hour)
	mock.ExpectExec("insert into revoked_tokens").
		WithArgs("jti-1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into revoked_tokens").
		WithArgs("jti-1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := store.Revoke(ctx, "jti-1", "u1", exp); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", "u1", exp); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsRevoked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select exists").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	revoked, err := store.IsRevoked(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected token to be revoked")
	}
}

func TestPurgeExpired(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from revoked_tokens where expires_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.PurgeExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 purged rows, got %d", n)
	}
}

func TestListMenusPopulatesRoles(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	menuRows := sqlmock.NewRows([]string{"id", "name", "path", "component", "parent_id", "icon", "sort_order", "is_active", "created_at", "updated_at"}).
		AddRow("m1", "Dashboard", "/dashboard", "Dashboard", nil, "home", 1, true, now, now).
		AddRow("m2", "Reports", "/reports", "Reports", "m1", "chart", 2, true, now, now)
	mock.ExpectQuery("select (.+) from menus").WillReturnRows(menuRows)
	mock.ExpectQuery("select menu_id, role_id from menu_roles").
		WillReturnRows(sqlmock.NewRows([]string{"menu_id", "role_id"}).
			AddRow("m1", "r1").
			AddRow("m2", "r1").
			AddRow("m2", "r2"))

	menus, err := store.ListMenus(context.Background())
	if err != nil {
		t.Fatalf("ListMenus: %v", err)
	}
	if len(menus) != 2 {
		t.Fatalf("expected 2 menus, got %d", len(menus))
	}
	if menus[1].ParentID != "m1" {
		t.Fatalf("parent not mapped: %+v", menus[1])
	}
	if len(menus[1].RoleIDs) != 2 {
		t.Fatalf("role associations not populated: %+v", menus[1].RoleIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetRolePermissionsUnknownCodename(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from role_permissions").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("r1", "no_such_perm").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetRolePermissions(context.Background(), "r1", []string{"no_such_perm"})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown codename, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
