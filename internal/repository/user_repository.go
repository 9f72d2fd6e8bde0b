package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/avetos/rental-backoffice/internal/model"
	"github.com/avetos/rental-backoffice/internal/utils"
)

// UserRepo persists application users ('users' table).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, full_name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var u model.User
	var createdStr, updatedStr string
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &createdStr, &updatedStr)
	if err != nil {
		return model.User{}, err
	}
	if u.CreatedAt, err = ParseDBTime(createdStr); err != nil {
		return model.User{}, err
	}
	if u.UpdatedAt, err = ParseDBTime(updatedStr); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, fullName, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := FmtTime(time.Now())
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (full_name, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		fullName, email, hash, role, now, now)
	if err != nil {
		// 1062 is MySQL's duplicate-entry code; sqlite reports "UNIQUE constraint failed".
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") || strings.Contains(msg, "unique") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by full name.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of user rows; used to gate the open
// bootstrap registration.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// Update rewrites a user's name, email and role.
func (r *UserRepo) Update(ctx context.Context, id uint64, fullName, email, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = ?, role = ?, updated_at = ? WHERE id = ?`,
		fullName, email, role, FmtTime(time.Now()), id)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") || strings.Contains(msg, "unique") {
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive enables or disables a login.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, FmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPassword replaces the stored bcrypt hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, FmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
