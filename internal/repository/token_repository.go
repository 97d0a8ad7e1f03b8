package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo maintains the revocation set keyed by jti. A row in
// 'revoked_tokens' means the token with that jti must never be accepted
// again, regardless of its own expiry.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Revoke inserts a jti into the revocation set. The original token expiry
// is stored alongside so PurgeExpired can drop rows that no longer need
// tracking. A duplicate jti returns ErrAlreadyRevoked.
func (r *TokenRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO revoked_tokens (jti, revoked_at, expires_at) VALUES (?,?,?)",
		jti, time.Now().UTC(), expiresAt)
	if isDuplicateKey(err) {
		return ErrAlreadyRevoked
	}
	return err
}

// IsRevoked reports whether a jti is in the revocation set.
func (r *TokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti=? LIMIT 1", jti).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes revocation rows whose original token has expired.
// A revoked token that can no longer validate does not need tracking.
func (r *TokenRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
