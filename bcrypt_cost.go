//go:build !race

package accounts

func defaultBcryptCost() int {
	return 12
}
