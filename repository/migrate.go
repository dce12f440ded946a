package repository

import (
	"context"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type migrateOptions struct {
	logger accounts.Logger
	up     func(ctx context.Context, p *goose.Provider) ([]*goose.MigrationResult, error)
}

// MigrateOption configures Migrate.
type MigrateOption func(*migrateOptions)

// WithMigrationLogger reports applied migrations to logger.
func WithMigrationLogger(logger accounts.Logger) MigrateOption {
	return func(o *migrateOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Migrate applies the embedded migrations matching the database dialect.
// Each call builds its own goose provider, so nothing process wide changes.
func Migrate(ctx context.Context, db *bun.DB, opts ...MigrateOption) error {
	o := migrateOptions{
		logger: accounts.NopLogger(),
		up: func(ctx context.Context, p *goose.Provider) ([]*goose.MigrationResult, error) {
			return p.Up(ctx)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	dir, gooseDialect, err := migrationDialect(db)
	if err != nil {
		return err
	}

	migrations, err := accounts.MigrationsFor(dir)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	provider, err := goose.NewProvider(gooseDialect, db.DB, migrations)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build migration provider")
	}

	results, err := o.up(ctx, provider)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}

	for _, r := range results {
		o.logger.Info("migration applied", "version", r.Source.Version, "file", r.Source.Path, "duration", r.Duration)
	}
	o.logger.Debug("migrations up to date", "dialect", dir, "applied", len(results))

	return nil
}

func migrationDialect(db *bun.DB) (dir string, gooseDialect goose.Dialect, err error) {
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return "sqlite", goose.DialectSQLite3, nil
	case dialect.PG:
		return "postgres", goose.DialectPostgres, nil
	default:
		return "", "", goerrors.New("unsupported database dialect "+db.Dialect().Name().String(), goerrors.CategoryValidation)
	}
}

// SeedRoles inserts the fixed role set. Existing rows are left untouched.
func SeedRoles(ctx context.Context, db bun.IDB) error {
	records := accounts.RoleRecords()
	_, err := db.NewInsert().
		Model(&records).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed roles")
	}
	return nil
}
