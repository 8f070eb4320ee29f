package types

import "time"

// User represents an account in the system.
// It contains identity, contact, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. Unique, compared case-insensitively
	// (stored lower-cased).
	Email string `json:"email" db:"email"`

	// Phone is the user's phone number, free-form.
	Phone string `json:"phone" db:"phone"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ProfilePictureKey is the object-store key of the user's profile
	// picture in the profile-pictures bucket, empty if none is set.
	ProfilePictureKey string `json:"profile_picture_key,omitempty" db:"profile_picture_key"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Role is a named authorization role from the fixed catalog seeded at startup.
type Role struct {
	// ID is the unique identifier of the role.
	ID int64 `json:"id" db:"id"`

	// Name is the unique role name (e.g., "Admin", "User").
	Name string `json:"name" db:"name"`
}

// Role catalog seeded at startup. Authorization decisions compare against
// these names.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Actor is the authenticated identity performing an operation, resolved by
// the auth middleware and passed into every service call.
type Actor struct {
	// ID is the acting user's identifier.
	ID int64

	// Roles is the set of role names assigned to the user.
	Roles []string
}

// HasRole reports whether the actor holds the named role.
func (a Actor) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// RevokedToken records a JWT revoked before its natural expiry (logout).
type RevokedToken struct {
	// JTI is the revoked token's unique identifier claim.
	JTI string `json:"jti" db:"jti"`

	// RevokedAt is the time the token was revoked.
	RevokedAt time.Time `json:"revoked_at" db:"revoked_at"`

	// ExpiresAt is the token's natural expiry, kept so expired rows can be
	// purged by a sweep.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
