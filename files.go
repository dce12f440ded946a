package accounts

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package, one
// directory per dialect ("sqlite", "postgres").
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsFor returns the migrations of a single dialect rooted at ".".
func MigrationsFor(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
}
