package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel  `bun:"table:accounts,alias:acc"`
	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Username       string    `bun:"username,notnull,unique" json:"username"`
	Email          string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash   string    `bun:"password_hash,notnull" json:"-"`
	Activated      bool      `bun:"activated,notnull" json:"activated"`
	Roles          []Role    `bun:"roles,notnull" json:"roles"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	CreatedBy      string    `bun:"created_by" json:"created_by,omitempty"`
	LastModifiedAt time.Time `bun:"last_modified_at,notnull" json:"last_modified_at"`
	LastModifiedBy string    `bun:"last_modified_by" json:"last_modified_by,omitempty"`
}

// HasRole reports whether the account holds role
func (a *Account) HasRole(role Role) bool {
	if a == nil {
		return false
	}
	return HasRole(a.Roles, role)
}

// touch stamps the modification audit fields.
func (a *Account) touch(actor string, now time.Time) {
	a.LastModifiedAt = now.UTC()
	a.LastModifiedBy = actor
}

// ActivationKey gates account activation. An account owns at most one.
type ActivationKey struct {
	bun.BaseModel `bun:"table:activation_keys,alias:ak"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AccountID     uuid.UUID `bun:"account_id,notnull,unique,type:uuid" json:"account_id"`
	Key           string    `bun:"activation_key,notnull" json:"-"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Expired uses a strict comparison: a key expiring exactly at now is still
// valid.
func (k *ActivationKey) Expired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// PasswordResetKey is a single use password reset grant. An account owns at
// most one.
type PasswordResetKey struct {
	bun.BaseModel `bun:"table:password_reset_keys,alias:prk"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AccountID     uuid.UUID `bun:"account_id,notnull,unique,type:uuid" json:"account_id"`
	Key           string    `bun:"reset_key,notnull,unique" json:"-"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Expired uses the same strict comparison as ActivationKey.Expired.
func (k *PasswordResetKey) Expired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// RoleRecord is the seeded row backing a Role.
type RoleRecord struct {
	bun.BaseModel `bun:"table:roles,alias:rl"`
	Name          Role   `bun:"name,pk" json:"name"`
	Description   string `bun:"description" json:"description,omitempty"`
}
