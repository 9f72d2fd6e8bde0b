package model

import "time"

// User roles accepted in the users.role column.
const (
	RoleAdmin   = "admin"
	RoleSales   = "sales"
	RoleOps     = "ops"
	RoleFinance = "finance"
)

// ValidRole reports whether r is one of the accepted user roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleSales, RoleOps, RoleFinance:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users`
// table.  Only the bcrypt hash of the password is kept.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of admin, sales, ops, finance.
//  IsActive     – whether the account may log in.
type User struct {
	ID           uint64
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
