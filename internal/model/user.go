package model

import "time"

// Role names stored in the `users` table and carried in JWT claims.
// The staff role is scoped to a single department; admin, site_admin
// and superadmin are facility-wide and bypass department checks when
// scanning tokens.  Residents never scan.
const (
	RoleResident   = "resident"
	RoleStaff      = "staff"
	RoleAdmin      = "admin"
	RoleSiteAdmin  = "site_admin"
	RoleSuperadmin = "superadmin"
)

// FacilityWide reports whether the role bypasses the department match
// required of base staff when consuming action tokens.
func FacilityWide(role string) bool {
	switch role {
	case RoleAdmin, RoleSiteAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// StaffSide reports whether the role belongs to facility personnel at
// all (i.e. may scan tokens, subject to the department rule).
func StaffSide(role string) bool {
	return role == RoleStaff || FacilityWide(role)
}

// User represents an application user record as stored in the `users`
// table.  Residents additionally have a ResidentAccount row keyed by
// UserID; staff carry the department they work in.  The json tags are
// omitted because these structs are used internally by the repository
// layer; handlers define their own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (resident, staff, admin, site_admin, superadmin).
//  Department   – department name for staff users; empty otherwise.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Department   string    // users.department (empty unless staff)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Actor is the authenticated identity passed into every lifecycle
// operation.  It is built from JWT claims by the middleware layer; the
// engine trusts it and applies only its own authorization rules.
type Actor struct {
	UserID     uint64 // acting user id
	Role       string // role claim
	Department string // department claim (staff only)
	ResidentID uint64 // resident account id when Role == resident, else 0
}
