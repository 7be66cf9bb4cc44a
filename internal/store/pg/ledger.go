package pg

import (
	"context"
	"time"
)

// Revoke inserts the refresh token id into the blacklist. Conflicts are
// ignored so a second logout with the same token succeeds.
func (s *Store) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		insert into revoked_tokens (token_id, user_id, expires_at)
		values ($1, $2, $3)
		on conflict (token_id) do nothing
	`, tokenID, userID, expiresAt.UTC())
	return err
}

func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from revoked_tokens where token_id = $1)
	`, tokenID).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// PurgeExpired deletes ledger rows whose tokens can no longer validate
// anyway. Safe to run from a cron or at startup.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from revoked_tokens where expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
