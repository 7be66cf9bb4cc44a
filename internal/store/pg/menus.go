package pg

import (
	"context"
	"database/sql"
	"errors"

	"authcore.org/internal/auth"
	"authcore.org/internal/ids"
)

func (s *Store) CreateMenu(ctx context.Context, menu *auth.Menu) error {
	if menu.ID == "" {
		menu.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into menus (id, name, path, component, parent_id, icon, sort_order, is_active)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, menu.ID, menu.Name, menu.Path, menu.Component, nullIfEmpty(menu.ParentID), menu.Icon, menu.SortOrder, menu.IsActive)
	if err := row.Scan(&menu.CreatedAt, &menu.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) FindMenu(ctx context.Context, id string) (*auth.Menu, error) {
	var (
		m        auth.Menu
		parentID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, path, component, parent_id, icon, sort_order, is_active, created_at, updated_at
		from menus
		where id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Path, &m.Component, &parentID, &m.Icon, &m.SortOrder, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.ParentID = parentID.String
	roleIDs, err := s.menuRoles(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.RoleIDs = roleIDs
	return &m, nil
}

// ListMenus returns every menu with its role associations populated in a
// single follow-up query rather than one query per menu.
func (s *Store) ListMenus(ctx context.Context) ([]*auth.Menu, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, path, component, parent_id, icon, sort_order, is_active, created_at, updated_at
		from menus
		order by sort_order, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []*auth.Menu
		byID   = map[string]*auth.Menu{}
	)
	for rows.Next() {
		var (
			m        auth.Menu
			parentID sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Path, &m.Component, &parentID, &m.Icon, &m.SortOrder, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.ParentID = parentID.String
		result = append(result, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assoc, err := s.db.QueryContext(ctx, `select menu_id, role_id from menu_roles order by menu_id`)
	if err != nil {
		return nil, err
	}
	defer assoc.Close()
	for assoc.Next() {
		var menuID, roleID string
		if err := assoc.Scan(&menuID, &roleID); err != nil {
			return nil, err
		}
		if m, ok := byID[menuID]; ok {
			m.RoleIDs = append(m.RoleIDs, roleID)
		}
	}
	if err := assoc.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateMenu(ctx context.Context, menu *auth.Menu) error {
	res, err := s.db.ExecContext(ctx, `
		update menus
		set name = $2, path = $3, component = $4, parent_id = $5, icon = $6,
		    sort_order = $7, is_active = $8, updated_at = now()
		where id = $1
	`, menu.ID, menu.Name, menu.Path, menu.Component, nullIfEmpty(menu.ParentID), menu.Icon, menu.SortOrder, menu.IsActive)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrNotFound
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
	return nil
}

func (s *Store) SetMenuRoles(ctx context.Context, menuID string, roleIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from menu_roles where menu_id = $1`, menuID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into menu_roles (menu_id, role_id) values ($1, $2)
		`, menuID, roleID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return auth.ErrNotFound
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) menuRoles(ctx context.Context, menuID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select role_id from menu_roles where menu_id = $1 order by role_id`, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roleIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roleIDs, nil
}
