package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authcore.org/internal/auth"
	"authcore.org/internal/ids"
)

const userColumns = `id, username, email, password_hash, is_active, last_login, created_at, updated_at`

func (s *Store) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, username, email, password_hash, is_active)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.IsActive)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where id = $1`, id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.findUser(ctx, `select `+userColumns+` from users where username = $1`, username)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	var (
		u         auth.User
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *Store) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.User
	for rows.Next() {
		var (
			u         auth.User
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update users set last_login = $2, updated_at = now() where id = $1`, userID, at.UTC())
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
