package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Role is an account role label carried in tokens.
type Role string

const (
	// RoleCustomer is assigned to every new account
	RoleCustomer Role = "CUSTOMER"
	// RoleEditor can manage content
	RoleEditor Role = "EDITOR"
	// RoleAdmin can manage everything
	RoleAdmin Role = "ADMIN"
)

// DefaultRole is the role assigned at registration unless overridden.
const DefaultRole = RoleCustomer

var roleLevels = map[Role]int{
	RoleCustomer: 1,
	RoleEditor:   2,
	RoleAdmin:    3,
}

var roleDescriptions = map[Role]string{
	RoleCustomer: "Registered customer",
	RoleEditor:   "Content editor",
	RoleAdmin:    "Administrator",
}

// AllRoles returns the fixed role set ordered from least to most privileged.
func AllRoles() []Role {
	return []Role{RoleCustomer, RoleEditor, RoleAdmin}
}

// RoleRecords returns the rows used to seed the roles table.
func RoleRecords() []*RoleRecord {
	out := make([]*RoleRecord, 0, len(roleLevels))
	for _, r := range AllRoles() {
		out = append(out, &RoleRecord{Name: r, Description: roleDescriptions[r]})
	}
	return out
}

// ParseRole resolves a role name. Matching ignores case and a "ROLE_" prefix.
func ParseRole(name string) (Role, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "ROLE_")
	r := Role(n)
	if !r.IsValid() {
		return "", goerrors.New("unknown role: "+name, goerrors.CategoryValidation).
			WithTextCode("UNKNOWN_ROLE").
			WithCode(goerrors.CodeBadRequest)
	}
	return r, nil
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// IsAtLeast checks if r is at least as privileged as min
func (r Role) IsAtLeast(min Role) bool {
	return roleLevels[r] > 0 && roleLevels[r] >= roleLevels[min]
}

func (r Role) String() string {
	return string(r)
}

// HasRole reports whether roles contains role
func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleNames converts roles to their string form.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// RolesFromNames converts names back to roles, dropping unknown labels.
func RolesFromNames(names []string) []Role {
	out := make([]Role, 0, len(names))
	for _, n := range names {
		if r, err := ParseRole(n); err == nil {
			out = append(out, r)
		}
	}
	return out
}
