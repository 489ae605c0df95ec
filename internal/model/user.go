package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.  It is stored as an
// upper-case string in the `users.role` column and carried in the
// `role` claim of access tokens.
type Role string

const (
	RoleGuest   Role = "GUEST"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole converts a raw role value into a Role.  Matching is case
// insensitive; anything outside the closed set is rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleGuest, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Privileged reports whether the role may act on bookings and users it
// does not own.
func (r Role) Privileged() bool { return r == RoleManager || r == RoleAdmin }

func (r Role) String() string { return string(r) }

// User represents an account record as stored in the `users` table.
// Contact and address fields are opaque to the reservation engine.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name shown to managers next to bookings.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – GUEST, MANAGER or ADMIN.
//  Address      – optional postal address.
//  Age          – optional age, zero when unknown.
//  Contact      – optional phone number.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	Address      string    // users.address
	Age          int       // users.age
	Contact      string    // users.contact
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
