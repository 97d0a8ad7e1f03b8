package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// User mirrors the 'auth_users' table.
type User struct {
	ID           uint64
	FullName     string
	FirstName    string
	LastName     string
	DOB          sql.NullTime
	Age          sql.NullInt32
	Email        string
	PhoneNumber  sql.NullString
	PasswordHash string
	IsActive     bool
	ProfileImage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,full_name,first_name,last_name,dob,age,email,phone_number,password_hash,is_active,profile_image,created_at,updated_at"

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.FirstName, &u.LastName, &u.DOB, &u.Age,
		&u.Email, &u.PhoneNumber, &u.PasswordHash, &u.IsActive, &u.ProfileImage,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a user and returns its ID. The password must already be
// hashed and the profile image already uploaded; this method only persists.
func (r *UserRepo) Create(ctx context.Context, u *User) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_users (full_name,first_name,last_name,dob,age,email,phone_number,password_hash,is_active,profile_image) VALUES (?,?,?,?,?,?,?,?,?,?)",
		u.FullName, u.FirstName, u.LastName, u.DOB, u.Age, u.Email, u.PhoneNumber,
		u.PasswordHash, true, u.ProfileImage)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM auth_users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM auth_users WHERE id=? LIMIT 1", id))
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM auth_users ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FullName, &u.FirstName, &u.LastName, &u.DOB, &u.Age,
			&u.Email, &u.PhoneNumber, &u.PasswordHash, &u.IsActive, &u.ProfileImage,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update persists the mutable profile fields of u.
func (r *UserRepo) Update(ctx context.Context, u *User) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE auth_users SET full_name=?,first_name=?,last_name=?,dob=?,age=?,phone_number=?,profile_image=? WHERE id=?",
		u.FullName, u.FirstName, u.LastName, u.DOB, u.Age, u.PhoneNumber, u.ProfileImage, u.ID)
	return err
}

// UpdatePassword replaces the stored hash for the user with the given email.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, hash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE auth_users SET password_hash=? WHERE email=?", hash, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// Delete removes a user. Boards, columns, tasks and subtasks cascade at
// the database level.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
