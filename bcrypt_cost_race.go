//go:build race

package accounts

import "golang.org/x/crypto/bcrypt"

// Race-enabled builds are slow enough that full cost hashing trips test timeouts.
func defaultBcryptCost() int {
	return bcrypt.MinCost
}
