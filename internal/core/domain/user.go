package domain

import "time"

// Role controls authorization decisions for a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r belongs to the closed set of known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User models a registered account in the marketplace.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// RefreshTokenHash is the digest of the single live refresh token.
	// nil means the user has no refreshable session.
	RefreshTokenHash *string `json:"-"`
}

// HasRefreshSession reports whether a refresh token is currently accepted for u.
func (u *User) HasRefreshSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}
