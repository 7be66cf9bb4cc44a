package pg

import (
	"context"
	"database/sql"
	"errors"

	"authcore.org/internal/auth"
	"authcore.org/internal/ids"
)

func (s *Store) CreateRole(ctx context.Context, role *auth.Role) error {
	if role.ID == "" {
		role.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into roles (id, name, description, is_active)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, role.ID, role.Name, role.Description, role.IsActive)
	if err := row.Scan(&role.CreatedAt, &role.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrDuplicateRole
		}
		return err
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID string) (*auth.Role, error) {
	var r auth.Role
	err := s.db.QueryRowContext(ctx, `
		select id, name, description, is_active, created_at, updated_at
		from roles
		where id = $1
	`, roleID).Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListActiveRoles(ctx context.Context) ([]*auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, is_active, created_at, updated_at
		from roles
		where is_active
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func (s *Store) DeactivateRole(ctx context.Context, roleID string) error {
	res, err := s.db.ExecContext(ctx, `
		update roles set is_active = false, updated_at = now() where id = $1
	`, roleID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrRoleNotFound
	}
	return nil
}

func (s *Store) AssignRole(ctx context.Context, assignment auth.UserRole) (auth.UserRole, error) {
	assignedBy := nullIfEmpty(assignment.AssignedBy)
	row := s.db.QueryRowContext(ctx, `
		insert into user_roles (user_id, role_id, assigned_by)
		values ($1, $2, $3)
		returning assigned_at
	`, assignment.UserID, assignment.RoleID, assignedBy)
	if err := row.Scan(&assignment.AssignedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.UserRole{}, auth.ErrDuplicateAssignment
			case pgErrForeignKeyViolation:
				return auth.UserRole{}, auth.ErrNotFound
			}
		}
		return auth.UserRole{}, err
	}
	return assignment, nil
}

func (s *Store) RemoveAssignment(ctx context.Context, userID, roleID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from user_roles where user_id = $1 and role_id = $2
	`, userID, roleID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// RolesForUser joins through user_roles and filters on roles.is_active, so
// assignments pointing at deactivated roles simply drop out of the result.
func (s *Store) RolesForUser(ctx context.Context, userID string) ([]*auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, r.description, r.is_active, r.created_at, r.updated_at
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1 and r.is_active
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func (s *Store) PermissionsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct p.codename
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		join roles r on r.id = rp.role_id
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1 and r.is_active
		order by p.codename
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codenames []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codenames = append(codenames, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codenames, nil
}

func (s *Store) EnsurePermissions(ctx context.Context, perms []auth.Permission) error {
	for _, p := range perms {
		id := p.ID
		if id == "" {
			id = ids.New()
		}
		if _, err := s.db.ExecContext(ctx, `
			insert into permissions (id, name, codename, description)
			values ($1, $2, $3, $4)
			on conflict (codename) do nothing
		`, id, p.Name, p.Codename, p.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetRolePermissions(ctx context.Context, roleID string, codenames []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}
	for _, codename := range codenames {
		res, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			select $1, id from permissions where codename = $2
		`, roleID, codename)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return auth.ErrRoleNotFound
			}
			return err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if aff == 0 {
			return auth.ErrNotFound
		}
	}
	return tx.Commit()
}

func scanRoles(rows *sql.Rows) ([]*auth.Role, error) {
	var result []*auth.Role
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullIfEmpty(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
