package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by a bearer token. The subject is the
// account username.
type TokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// Username returns the subject claim
func (c *TokenClaims) Username() string {
	return c.RegisteredClaims.Subject
}

// RoleSet returns the known roles in the token. Unknown labels are dropped.
func (c *TokenClaims) RoleSet() []Role {
	return RolesFromNames(c.Roles)
}

// HasRole checks if the token carries role
func (c *TokenClaims) HasRole(role Role) bool {
	return HasRole(c.RoleSet(), role)
}

// IsAtLeast checks if any role in the token is at least min
func (c *TokenClaims) IsAtLeast(min Role) bool {
	for _, r := range c.RoleSet() {
		if r.IsAtLeast(min) {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// Issued returns the issued at time
func (c *TokenClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}
