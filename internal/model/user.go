package model

import "time"

// Roles carried in the JWT "role" claim.
const (
	RoleStaff    = "STAFF"    // internal park staff, full access
	RoleRetailer = "RETAILER" // member of a retailer group selling passes in person
	RoleCustomer = "CUSTOMER" // external customer buying online
)

// User represents an application user record as stored in the `users`
// table.  Retailer users belong to exactly one retailer group; the
// RetailerGroupID is nil for every other role.
//
// Fields:
//  ID              – primary key identifier of the user.
//  Email           – unique email address.
//  PasswordHash    – bcrypt hashed password.
//  Role            – STAFF, RETAILER or CUSTOMER.
//  RetailerGroupID – retailer group of a RETAILER user.
//  IsActive        – whether the account is active.
type User struct {
	ID              uint64    // users.id
	Email           string    // users.email
	PasswordHash    string    // users.password_hash
	Role            string    // users.role
	RetailerGroupID *uint64   // users.retailer_group_id (nullable)
	IsActive        bool      // users.is_active
	CreatedAt       time.Time // users.created_at
	UpdatedAt       time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored, only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
