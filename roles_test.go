package accounts_test

import (
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  accounts.Role
	}{
		{input: "CUSTOMER", want: accounts.RoleCustomer},
		{input: "editor", want: accounts.RoleEditor},
		{input: "ROLE_ADMIN", want: accounts.RoleAdmin},
		{input: " role_customer ", want: accounts.RoleCustomer},
	}

	for _, tt := range tests {
		got, err := accounts.ParseRole(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := accounts.ParseRole("superuser")
	assert.Error(t, err)
}

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, accounts.RoleAdmin.IsAtLeast(accounts.RoleEditor))
	assert.True(t, accounts.RoleEditor.IsAtLeast(accounts.RoleEditor))
	assert.False(t, accounts.RoleCustomer.IsAtLeast(accounts.RoleEditor))
	assert.False(t, accounts.Role("GUEST").IsAtLeast(accounts.RoleCustomer))
}

func TestRoleConversions(t *testing.T) {
	names := accounts.RoleNames([]accounts.Role{accounts.RoleCustomer, accounts.RoleAdmin})
	assert.Equal(t, []string{"CUSTOMER", "ADMIN"}, names)

	roles := accounts.RolesFromNames([]string{"CUSTOMER", "bogus", "role_editor"})
	assert.Equal(t, []accounts.Role{accounts.RoleCustomer, accounts.RoleEditor}, roles)

	claims := &accounts.TokenClaims{Roles: []string{"EDITOR", "unknown"}}
	assert.True(t, claims.IsAtLeast(accounts.RoleCustomer))
	assert.False(t, claims.IsAtLeast(accounts.RoleAdmin))
	assert.Equal(t, []accounts.Role{accounts.RoleEditor}, claims.RoleSet())
	assert.True(t, claims.Expires().IsZero())

	records := accounts.RoleRecords()
	require.Len(t, records, 3)
	assert.Equal(t, accounts.RoleCustomer, records[0].Name)
	assert.NotEmpty(t, records[0].Description)
}
