package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PasswordOTP mirrors the 'password_otp' table. One row per email holds the
// current reset code; it is rewritten on re-request and deleted after a
// successful password reset.
type PasswordOTP struct {
	ID         uint64
	Email      string
	OTP        int
	IsVerified bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// GetByEmail returns the OTP row for an email, or ErrNotFound.
func (r *OTPRepo) GetByEmail(ctx context.Context, email string) (PasswordOTP, error) {
	var o PasswordOTP
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,otp,is_verified,created_at,expires_at FROM password_otp WHERE email=? LIMIT 1",
		email).Scan(&o.ID, &o.Email, &o.OTP, &o.IsVerified, &o.CreatedAt, &o.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

// Upsert creates or rewrites the OTP row for an email, resetting the
// verified flag.
func (r *OTPRepo) Upsert(ctx context.Context, email string, otp int, expiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_otp (email,otp,is_verified,created_at,expires_at) VALUES (?,?,false,?,?) "+
			"ON DUPLICATE KEY UPDATE otp=VALUES(otp), is_verified=false, created_at=VALUES(created_at), expires_at=VALUES(expires_at)",
		email, otp, now, expiresAt)
	return err
}

// MarkVerified flips the verified flag after a correct code was presented.
func (r *OTPRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE password_otp SET is_verified=true WHERE id=?", id)
	return err
}

// Delete removes the OTP row once the password has been reset.
func (r *OTPRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM password_otp WHERE id=?", id)
	return err
}
